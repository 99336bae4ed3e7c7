package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/pricing"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/db/postgres"
)

// openTestDB creates an isolated schema in the database named by
// HOSTELHUNT_TEST_DB and drops it when the test ends.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("HOSTELHUNT_TEST_DB")
	if dsn == "" {
		t.Skip("HOSTELHUNT_TEST_DB not set")
	}
	ctx := context.Background()
	admin, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	schemaName := "hh_test_" + uuid.NewString()[:8]
	_, err = admin.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schemaName))
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schemaName
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schemaName))
		admin.Close()
	})
	require.NoError(t, postgres.ApplySchema(ctx, pool))
	return pool
}

type seed struct {
	student  *domainuser.User
	landlord *domainuser.Landlord
	hostel   *domainhostels.Hostel
}

func seedData(t *testing.T, factory postgres.Factory) seed {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := seed{
		student: &domainuser.User{ID: "u-student", Email: "student@example.com", Name: "Amina", PasswordHash: "x",
			Role: domainuser.RoleStudent, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	owner := &domainuser.User{ID: "u-owner", Email: "owner@example.com", Name: "Otieno", PasswordHash: "x",
		Role: domainuser.RoleLandlord, Active: true, CreatedAt: now, UpdatedAt: now}
	s.landlord = &domainuser.Landlord{ID: "l-1", UserID: owner.ID, BusinessName: "Campus Homes", CreatedAt: now, UpdatedAt: now}
	s.hostel = &domainhostels.Hostel{
		ID:          "h-1",
		LandlordID:  s.landlord.ID,
		Name:        "Kilimani Court",
		Location:    "Kilimani, Nairobi",
		Description: "Quiet rooms near campus",
		Price:       money.Money{Amount: 650000, Currency: "KES"},
		Capacity:    2,
		RoomType:    domainhostels.RoomSingle,
		Amenities:   []int{1, 4},
		Coordinates: &domainhostels.Coordinates{Lat: -1.29, Lng: 36.78},
		Features:    map[string]bool{domainhostels.FeatureFurnished: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Users().Save(ctx, s.student))
	require.NoError(t, unit.Users().Save(ctx, owner))
	require.NoError(t, unit.Landlords().Save(ctx, s.landlord))
	require.NoError(t, unit.Hostels().Save(ctx, s.hostel))
	require.NoError(t, unit.Commit(ctx))
	return s
}

func TestRepositoriesRoundTrip(t *testing.T) {
	pool := openTestDB(t)
	factory := postgres.Factory{Pool: pool}
	s := seedData(t, factory)
	ctx := context.Background()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	user, err := unit.Users().ByEmail(ctx, "STUDENT@example.com")
	require.NoError(t, err)
	assert.Equal(t, s.student.ID, user.ID)

	dup := *s.student
	dup.ID = "u-other"
	assert.ErrorIs(t, unit.Users().Save(ctx, &dup), domainuser.ErrEmailAlreadyUsed)
}

func TestHostelSearchFiltersAndPages(t *testing.T) {
	pool := openTestDB(t)
	factory := postgres.Factory{Pool: pool}
	s := seedData(t, factory)
	ctx := context.Background()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	base := s.hostel.CreatedAt
	for i := 0; i < 12; i++ {
		h := *s.hostel
		h.ID = domainhostels.ID(fmt.Sprintf("h-extra-%02d", i))
		h.Name = fmt.Sprintf("Block %02d", i)
		h.Price.Amount = int64(400000 + i*10000)
		h.Coordinates = nil
		h.Features = nil
		h.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, unit.Hostels().Save(ctx, &h))
	}
	require.NoError(t, unit.Commit(ctx))

	read, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer read.Rollback(ctx)

	result, err := read.Hostels().Search(ctx, domainhostels.SearchParams{
		MaxPrice: 500000, Sort: domainhostels.SortPriceAsc, Page: 2, PerPage: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, result.Total)
	require.Len(t, result.Items, 5)
	assert.Equal(t, int64(450000), result.Items[0].Price.Amount)

	furnished := true
	result, err = read.Hostels().Search(ctx, domainhostels.SearchParams{Furnished: &furnished, Amenities: []int{4}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, s.hostel.ID, result.Items[0].ID)
	assert.Equal(t, []int{1, 4}, result.Items[0].Amenities)

	result, err = read.Hostels().Search(ctx, domainhostels.SearchParams{
		Near: &domainhostels.GeoFilter{Lat: -1.29, Lng: 36.78, RadiusKm: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)

	ids, err := read.Hostels().AmenityIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, ids)
}

func TestBookingsOverlapAndStats(t *testing.T) {
	pool := openTestDB(t)
	factory := postgres.Factory{Pool: pool}
	s := seedData(t, factory)
	ctx := context.Background()

	stay := func(in, out string) daterange.DateRange {
		dr, err := daterange.Parse(in, out)
		require.NoError(t, err)
		return dr
	}
	price := pricing.PriceBreakdown{
		Nights:  3,
		Nightly: money.Money{Amount: 650000, Currency: "KES"},
		Fees:    []pricing.Fee{{Name: "service", Amount: money.Money{Amount: 10000, Currency: "KES"}}},
		Total:   money.Money{Amount: 1960000, Currency: "KES"},
	}
	created := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	bookings := []*domainbooking.Booking{
		{ID: "b-1", Status: domainbooking.StatusConfirmed, Range: stay("2025-04-01", "2025-04-04")},
		{ID: "b-2", Status: domainbooking.StatusCancelled, Range: stay("2025-04-02", "2025-04-05")},
		{ID: "b-3", Status: domainbooking.StatusCompleted, Range: stay("2025-03-01", "2025-03-04")},
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	for i, b := range bookings {
		b.UserID = s.student.ID
		b.HostelID = s.hostel.ID
		b.Guests = 1
		b.PhoneNumber = "254712345678"
		b.Price = price
		b.PaymentStatus = domainbooking.PaymentUnpaid
		b.CreatedAt = created.Add(time.Duration(i) * time.Minute)
		b.UpdatedAt = b.CreatedAt
		require.NoError(t, unit.Bookings().Save(ctx, b))
	}
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{
		ID: "evt-1", Name: "booking.created", Payload: []byte(`{"booking_id":"b-1"}`), OccurredAt: created, Aggregate: "b-1",
	}))
	require.NoError(t, unit.Commit(ctx))

	read, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer read.Rollback(ctx)

	overlapping, err := read.Bookings().Overlapping(ctx, s.hostel.ID, stay("2025-04-03", "2025-04-06"))
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, domainbooking.ID("b-1"), overlapping[0].ID)
	assert.Equal(t, price, overlapping[0].Price)

	none, err := read.Bookings().Overlapping(ctx, s.hostel.ID, stay("2025-04-04", "2025-04-06"))
	require.NoError(t, err)
	assert.Empty(t, none)

	eligible, err := read.Bookings().HasCompletedStay(ctx, s.student.ID, s.hostel.ID, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, eligible)

	stats, err := read.Bookings().Stats(ctx, domainbooking.StatsFilter{HostelIDs: []domainhostels.ID{s.hostel.ID}})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, int64(2*1960000), stats.Revenue)
	assert.Equal(t, "KES", stats.Currency)

	items, total, err := read.Bookings().List(ctx, domainbooking.ListParams{UserID: s.student.ID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, domainbooking.ID("b-3"), items[0].ID)

	outbox := postgres.OutboxStore{Pool: pool}
	claimed, err := outbox.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "booking.created", claimed.Name)
	again, err := outbox.Claim(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, again)
	require.NoError(t, outbox.MarkSent(ctx, claimed.ID))
}

func TestReviewUniquenessAndSummary(t *testing.T) {
	pool := openTestDB(t)
	factory := postgres.Factory{Pool: pool}
	s := seedData(t, factory)
	ctx := context.Background()
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	review := &domainreviews.Review{ID: "r-1", UserID: s.student.ID, HostelID: s.hostel.ID, Rating: 4, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, unit.Reviews().Save(ctx, review))

	summary, err := unit.Reviews().SummaryByHostels(ctx, []domainhostels.ID{s.hostel.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 4, summary.Sum)
	assert.Equal(t, 1, summary.Distribution[3])

	dup := *review
	dup.ID = "r-2"
	assert.ErrorIs(t, unit.Reviews().Save(ctx, &dup), domainreviews.ErrAlreadyReviewed)
}
