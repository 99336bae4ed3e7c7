// Package memtest seeds the in-memory store for package tests.
package memtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/pricing"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/storage/memory"
)

// Today is the fixed calendar day fixtures are created relative to.
var Today = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type Fixture struct {
	t       *testing.T
	Store   *memory.Store
	Outbox  *memory.OutboxStore
	Factory memory.Factory
}

func New(t *testing.T) *Fixture {
	t.Helper()
	store := memory.NewStore()
	box := memory.NewOutboxStore()
	return &Fixture{t: t, Store: store, Outbox: box, Factory: memory.Factory{Store: store, Outbox: box}}
}

// Write runs fn in a committed write unit.
func (f *Fixture) Write(fn func(ctx context.Context, unit uow.UnitOfWork) error) {
	f.t.Helper()
	ctx := context.Background()
	unit, err := f.Factory.Begin(ctx, uow.TxOptions{})
	require.NoError(f.t, err)
	if err := fn(ctx, unit); err != nil {
		_ = unit.Rollback(ctx)
		require.NoError(f.t, err)
	}
	require.NoError(f.t, unit.Commit(ctx))
}

// Read runs fn in a read-only unit.
func (f *Fixture) Read(fn func(ctx context.Context, unit uow.UnitOfWork) error) {
	f.t.Helper()
	ctx := context.Background()
	unit, err := f.Factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(f.t, err)
	defer func() { _ = unit.Rollback(ctx) }()
	require.NoError(f.t, fn(ctx, unit))
}

func (f *Fixture) Student(email string) *domainuser.User {
	f.t.Helper()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         "Student " + email,
		PasswordHash: "hash",
		PhoneNumber:  "0712345678",
		CreatedAt:    Today.AddDate(0, -1, 0),
	})
	require.NoError(f.t, err)
	user.ClearEvents()
	f.SaveUser(user)
	return user
}

func (f *Fixture) Admin(email string) *domainuser.User {
	f.t.Helper()
	user := f.Student(email)
	require.NoError(f.t, user.ChangeRole(domainuser.RoleAdmin, Today))
	user.ClearEvents()
	f.SaveUser(user)
	return user
}

func (f *Fixture) Landlord(email, business string) (*domainuser.User, *domainuser.Landlord) {
	f.t.Helper()
	user := f.Student(email)
	require.NoError(f.t, user.BecomeLandlord(Today))
	user.ClearEvents()
	landlord, err := domainuser.NewLandlord(domainuser.LandlordParams{
		ID:           domainuser.LandlordID(uuid.NewString()),
		Owner:        user,
		BusinessName: business,
		ContactPhone: "0700000000",
		CreatedAt:    Today,
	})
	require.NoError(f.t, err)
	f.SaveUser(user)
	f.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Landlords().Save(ctx, landlord)
	})
	return user, landlord
}

func (f *Fixture) SaveUser(user *domainuser.User) {
	f.t.Helper()
	f.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Users().Save(ctx, user)
	})
}

// Hostel creates a hostel priced in major units; mutate may adjust fields before saving.
func (f *Fixture) Hostel(landlord *domainuser.Landlord, name string, price float64, capacity int, mutate ...func(*domainhostels.Hostel)) *domainhostels.Hostel {
	f.t.Helper()
	amount, err := money.FromMajor(price, money.DefaultCurrency)
	require.NoError(f.t, err)
	hostel, err := domainhostels.New(domainhostels.CreateParams{
		ID:          domainhostels.ID(uuid.NewString()),
		LandlordID:  landlord.ID,
		Name:        name,
		Location:    "Nairobi",
		Description: "A quiet hostel close to campus.",
		Price:       amount,
		Capacity:    capacity,
		RoomType:    domainhostels.RoomSingle,
		Now:         Today.AddDate(0, -1, 0),
	})
	require.NoError(f.t, err)
	hostel.ClearEvents()
	for _, fn := range mutate {
		fn(hostel)
	}
	f.SaveHostel(hostel)
	return hostel
}

func (f *Fixture) SaveHostel(hostel *domainhostels.Hostel) {
	f.t.Helper()
	f.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Hostels().Save(ctx, hostel)
	})
}

// Booking stores a booking for [checkIn, checkOut) already in status.
func (f *Fixture) Booking(user *domainuser.User, hostel *domainhostels.Hostel, checkIn, checkOut time.Time, status domainbooking.Status) *domainbooking.Booking {
	f.t.Helper()
	dr, err := daterange.New(checkIn, checkOut)
	require.NoError(f.t, err)
	price, err := pricing.Quote(hostel, dr)
	require.NoError(f.t, err)
	booking, err := domainbooking.New(domainbooking.CreateParams{
		ID:          domainbooking.ID(uuid.NewString()),
		UserID:      user.ID,
		HostelID:    hostel.ID,
		Range:       dr,
		Guests:      1,
		PhoneNumber: "0712345678",
		Price:       price,
		Now:         dr.CheckIn.AddDate(0, 0, -1),
	})
	require.NoError(f.t, err)
	booking.ClearEvents()
	booking.Status = status
	f.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Save(ctx, booking)
	})
	return booking
}

func (f *Fixture) Review(user *domainuser.User, hostel *domainhostels.Hostel, rating int) *domainreviews.Review {
	f.t.Helper()
	review, err := domainreviews.New(domainreviews.CreateParams{
		ID:       domainreviews.ID(uuid.NewString()),
		UserID:   user.ID,
		HostelID: hostel.ID,
		Rating:   rating,
		Comment:  "Nice stay",
		Now:      Today,
	})
	require.NoError(f.t, err)
	review.ClearEvents()
	f.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reviews().Save(ctx, review)
	})
	return review
}

func (f *Fixture) LoadBooking(id domainbooking.ID) *domainbooking.Booking {
	f.t.Helper()
	var out *domainbooking.Booking
	f.Read(func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().ByID(ctx, id)
		return err
	})
	return out
}

func (f *Fixture) LoadHostel(id domainhostels.ID) *domainhostels.Hostel {
	f.t.Helper()
	var out *domainhostels.Hostel
	f.Read(func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Hostels().ByID(ctx, id)
		return err
	})
	return out
}

func (f *Fixture) LoadLandlord(id domainuser.LandlordID) *domainuser.Landlord {
	f.t.Helper()
	var out *domainuser.Landlord
	f.Read(func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Landlords().ByID(ctx, id)
		return err
	})
	return out
}

func (f *Fixture) LoadUser(id domainuser.ID) *domainuser.User {
	f.t.Helper()
	var out *domainuser.User
	f.Read(func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Users().ByID(ctx, id)
		return err
	})
	return out
}
