package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "hostelhunt/internal/app/handlers/booking"
	"hostelhunt/internal/app/notifications"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/storage/memory"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []policies.Email
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, email policies.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[email.To] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, e := range m.sent {
		out = append(out, e.Subject)
	}
	return out
}

type staticTokens struct{}

func (staticTokens) EmailVerificationToken(id domainuser.ID) (string, error) { return "verify-" + string(id), nil }
func (staticTokens) PasswordResetToken(u *domainuser.User) (string, error)   { return "reset-" + string(u.ID), nil }

func newDispatcher(fx *memtest.Fixture, mailer *recordingMailer) *notifications.Dispatcher {
	return &notifications.Dispatcher{
		UoWFactory: fx.Factory,
		Notifier:   &notifications.Notifier{Mailer: mailer, BaseURL: "https://hostelhunt.test/"},
		Inbox:      memory.NewInbox(),
		Tokens:     staticTokens{},
	}
}

func event(t *testing.T, id, name string, payload any) notifications.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return notifications.Event{ID: id, Name: name, Data: data}
}

func TestWelcomeEmailCarriesVerificationLink(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	user := fx.Student("new@example.com")

	err := newDispatcher(fx, mailer).Handle(context.Background(),
		event(t, "e1", "user.registered", domainuser.Registered{UserID: user.ID, Email: user.Email}))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	email := mailer.sent[0]
	assert.Equal(t, "Welcome to Hostel Hunt!", email.Subject)
	assert.Equal(t, "new@example.com", email.To)
	assert.Contains(t, email.HTML, "https://hostelhunt.test/verify-email?token=verify-"+string(user.ID))
	assert.Contains(t, email.Text, "Verify Email: https://hostelhunt.test/verify-email")
}

func TestBookingCreatedNotifiesGuestAndLandlord(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	guest := fx.Student("guest@example.com")
	_, landlord := fx.Landlord("owner@example.com", "Campus Homes")
	hostel := fx.Hostel(landlord, "Sunrise Hostel", 1500, 10)
	in := memtest.Today.AddDate(0, 0, 7)
	b := fx.Booking(guest, hostel, in, in.AddDate(0, 0, 2), domainbooking.StatusConfirmed)

	err := newDispatcher(fx, mailer).Handle(context.Background(),
		event(t, "e1", "booking.created", domainbooking.Created{BookingID: b.ID}))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Booking Confirmed - Sunrise Hostel", "New Booking - Sunrise Hostel"}, mailer.subjects())
	for _, email := range mailer.sent {
		assert.Contains(t, email.HTML, "KES 3000.00")
	}
}

func TestDuplicateEventsAreSkipped(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	user := fx.Student("dup@example.com")
	d := newDispatcher(fx, mailer)
	ev := event(t, "same-id", "user.password_reset_requested", domainuser.PasswordResetRequested{UserID: user.ID})

	require.NoError(t, d.Handle(context.Background(), ev))
	require.NoError(t, d.Handle(context.Background(), ev))

	assert.Equal(t, []string{"Password Reset Request"}, mailer.subjects())
}

func TestFailedSendIsRetriedOnRedelivery(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{fail: map[string]bool{"flaky@example.com": true}}
	user := fx.Student("flaky@example.com")
	d := newDispatcher(fx, mailer)
	ev := event(t, "e1", "user.registered", domainuser.Registered{UserID: user.ID})

	err := d.Handle(context.Background(), ev)
	require.ErrorIs(t, err, notifications.ErrNotDelivered)

	mailer.fail = nil
	require.NoError(t, d.Handle(context.Background(), ev))
	assert.Len(t, mailer.sent, 1)
}

func TestUnknownAggregateIsDropped(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	err := newDispatcher(fx, mailer).Handle(context.Background(),
		event(t, "e1", "booking.cancelled", domainbooking.Cancelled{BookingID: "missing"}))
	assert.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHostelVerifiedUsesLandlordContactEmail(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	_, landlord := fx.Landlord("owner@example.com", "Campus Homes")
	landlord.ContactEmail = "bookings@campus.example"
	fx.Write(func(ctx context.Context, unit uow.UnitOfWork) error { return unit.Landlords().Save(ctx, landlord) })
	hostel := fx.Hostel(landlord, "Sunrise Hostel", 1500, 10)

	err := newDispatcher(fx, mailer).Handle(context.Background(),
		event(t, "e1", "hostel.verified", domainhostels.Verified{HostelID: hostel.ID}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "bookings@campus.example", mailer.sent[0].To)
	assert.Equal(t, "Your hostel has been approved - Sunrise Hostel", mailer.sent[0].Subject)
}

func TestRunRemindersSweeps(t *testing.T) {
	fx := memtest.New(t)
	mailer := &recordingMailer{}
	guest := fx.Student("guest@example.com")
	reviewer := fx.Student("reviewer@example.com")
	_, landlord := fx.Landlord("owner@example.com", "Campus Homes")
	hostel := fx.Hostel(landlord, "Sunrise Hostel", 1500, 10)
	today := memtest.Today

	fx.Booking(guest, hostel, today.AddDate(0, 0, 1), today.AddDate(0, 0, 4), domainbooking.StatusConfirmed)
	finished := fx.Booking(guest, hostel, today.AddDate(0, 0, -2), today, domainbooking.StatusConfirmed)
	fx.Booking(guest, hostel, today.AddDate(0, 0, -6), today.AddDate(0, 0, -3), domainbooking.StatusCompleted)
	fx.Booking(reviewer, hostel, today.AddDate(0, 0, -6), today.AddDate(0, 0, -3), domainbooking.StatusCompleted)
	fx.Review(reviewer, hostel, 4)

	handler := &notifications.RemindersHandler{
		UoWFactory: fx.Factory,
		Completer:  &bookingapp.CompleteStaysHandler{UoWFactory: fx.Factory},
		Notifier:   &notifications.Notifier{Mailer: mailer},
	}
	report, err := handler.Handle(context.Background(), notifications.RunRemindersCommand{Today: today})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.CheckInReminders)
	assert.Zero(t, report.CheckOutReminders, "stays ending today are completed first")
	assert.Equal(t, 1, report.ReviewNudges)
	assert.Equal(t, domainbooking.StatusCompleted, fx.LoadBooking(finished.ID).Status)
	assert.ElementsMatch(t, []string{
		"Check-in Reminder - Sunrise Hostel",
		"How was your stay at Sunrise Hostel?",
	}, mailer.subjects())
}
