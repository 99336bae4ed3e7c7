package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "hostelhunt/internal/app/handlers/booking"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

func actor(u *domainuser.User) support.Actor {
	return support.Actor{ID: u.ID, Role: u.Role}
}

func TestCreateQuotesStayAndRecordsEvent(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	h := &bookingapp.CreateBookingHandler{UoWFactory: fx.Factory, Encoder: outbox.JSONEventEncoder{}}

	result, err := h.Handle(context.Background(), bookingapp.CreateBookingCommand{
		Actor:       actor(student),
		HostelID:    hostel.ID,
		CheckIn:     memtest.Today.AddDate(0, 0, 1),
		CheckOut:    memtest.Today.AddDate(0, 0, 4),
		Guests:      1,
		PhoneNumber: "0712345678",
		Now:         memtest.Today,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Nights)
	assert.InDelta(t, 3000.0, result.TotalPrice, 0.001)
	assert.Equal(t, string(domainbooking.StatusConfirmed), result.Status)
	assert.Equal(t, "Green Court", result.HostelName)
	assert.Positive(t, fx.Outbox.Pending())
}

func TestCreateRejectsPastCheckInAndFullHostel(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Tiny Court", 800, 2)
	first := fx.Student("kim@example.com")
	second := fx.Student("lee@example.com")
	h := &bookingapp.CreateBookingHandler{
		UoWFactory: fx.Factory,
		Policy:     bookingapp.Policy{PaymentRequired: true, EnforceCapacity: true},
	}
	cmd := bookingapp.CreateBookingCommand{
		Actor:       actor(first),
		HostelID:    hostel.ID,
		CheckIn:     memtest.Today,
		CheckOut:    memtest.Today.AddDate(0, 0, 2),
		Guests:      2,
		PhoneNumber: "0712345678",
		Now:         memtest.Today,
	}
	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainbooking.ErrCheckInNotFuture)

	cmd.CheckIn = memtest.Today.AddDate(0, 0, 1)
	cmd.CheckOut = memtest.Today.AddDate(0, 0, 3)
	booked, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusPending), booked.Status)

	cmd.Actor = actor(second)
	cmd.Guests = 1
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainbooking.ErrCapacityExceeded)
}

func TestUpdateStatusIsIdempotentAndOwnerOnly(t *testing.T) {
	fx := memtest.New(t)
	owner, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	stranger, _ := fx.Landlord("other@example.com", "Other Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 3), memtest.Today.AddDate(0, 0, 6), domainbooking.StatusPending)
	h := &bookingapp.LifecycleHandler{UoWFactory: fx.Factory, Encoder: outbox.JSONEventEncoder{}}
	cmd := bookingapp.UpdateStatusCommand{Actor: actor(stranger), BookingID: booking.ID, Status: "confirmed", Now: memtest.Today}

	_, err := h.UpdateStatus(context.Background(), cmd)
	assert.ErrorIs(t, err, domainhostels.ErrNotOwner)

	cmd.Actor = actor(owner)
	updated, err := h.UpdateStatus(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), updated.Status)
	pending := fx.Outbox.Pending()

	again, err := h.UpdateStatus(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), again.Status)
	assert.Equal(t, pending, fx.Outbox.Pending())

	cmd.Status = "pending"
	_, err = h.UpdateStatus(context.Background(), cmd)
	assert.ErrorIs(t, err, domainbooking.ErrInvalidStatus)
}

func TestCancelAndRefund(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	other := fx.Student("lee@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 3), memtest.Today.AddDate(0, 0, 5), domainbooking.StatusConfirmed)
	h := &bookingapp.LifecycleHandler{UoWFactory: fx.Factory}

	_, err := h.Cancel(context.Background(), bookingapp.CancelCommand{Actor: actor(other), BookingID: booking.ID, Now: memtest.Today})
	assert.ErrorIs(t, err, domainbooking.ErrNotOwner)

	cancelled, err := h.Cancel(context.Background(), bookingapp.CancelCommand{Actor: actor(student), BookingID: booking.ID, Reason: "exams moved", Now: memtest.Today})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusCancelled), cancelled.Status)
	assert.Equal(t, "exams moved", cancelled.CancelReason)

	refund, err := h.Refund(context.Background(), bookingapp.RefundCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusRefunded), refund.Booking.Status)
	assert.InDelta(t, 2000.0, refund.RefundAmount, 0.001)
	assert.Equal(t, domainbooking.StatusRefunded, fx.LoadBooking(booking.ID).Status)
}

func TestCompleteStaysOnlyTouchesFinishedConfirmedBookings(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	done := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, -4), memtest.Today, domainbooking.StatusConfirmed)
	ongoing := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, -1), memtest.Today.AddDate(0, 0, 2), domainbooking.StatusConfirmed)
	cancelled := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, -4), memtest.Today.AddDate(0, 0, -1), domainbooking.StatusCancelled)
	h := &bookingapp.CompleteStaysHandler{UoWFactory: fx.Factory}

	n, err := h.Handle(context.Background(), bookingapp.CompleteStaysCommand{Today: memtest.Today})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domainbooking.StatusCompleted, fx.LoadBooking(done.ID).Status)
	assert.Equal(t, domainbooking.StatusConfirmed, fx.LoadBooking(ongoing.ID).Status)
	assert.Equal(t, domainbooking.StatusCancelled, fx.LoadBooking(cancelled.ID).Status)

	n, err = h.Handle(context.Background(), bookingapp.CompleteStaysCommand{Today: memtest.Today})
	require.NoError(t, err)
	assert.Zero(t, n)
}
