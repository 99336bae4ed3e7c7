package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

// ErrNotDelivered is returned when at least one email of an event could not be sent,
// so the relay schedules a retry.
var ErrNotDelivered = errors.New("notifications: email not delivered")

// Event is a published domain event as seen by consumers.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// Inbox deduplicates events across redeliveries.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// TokenSigner issues the signed tokens embedded in account emails.
type TokenSigner interface {
	EmailVerificationToken(userID domainuser.ID) (string, error)
	PasswordResetToken(user *domainuser.User) (string, error)
}

// Dispatcher turns domain events into emails.
type Dispatcher struct {
	UoWFactory uow.UoWFactory
	Notifier   *Notifier
	Inbox      Inbox
	Tokens     TokenSigner
	Logger     *slog.Logger
}

func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	handle := d.route(ev.Name)
	if handle == nil {
		return nil
	}
	if d.Inbox != nil && ev.ID != "" {
		seen, err := d.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	err := handle(ctx, ev.Data)
	if err == nil {
		return nil
	}
	if permanent(err) {
		if d.Logger != nil {
			d.Logger.Warn("event dropped", "event", ev.Name, "id", ev.ID, "error", err)
		}
		return nil
	}
	if d.Inbox != nil && ev.ID != "" {
		if ferr := d.Inbox.Forget(ctx, ev.ID); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}
	if d.Logger != nil {
		d.Logger.Warn("event notification failed", "event", ev.Name, "id", ev.ID, "error", err)
	}
	return err
}

func (d *Dispatcher) route(name string) func(context.Context, []byte) error {
	switch name {
	case domainuser.Registered{}.EventName():
		return d.onRegistered
	case domainuser.PasswordResetRequested{}.EventName():
		return d.onPasswordReset
	case domainbooking.Created{}.EventName():
		return d.onBookingCreated
	case domainbooking.Cancelled{}.EventName():
		return d.onBookingCancelled
	case domainbooking.Refunded{}.EventName():
		return d.onBookingRefunded
	case domainpayments.Received{}.EventName():
		return d.onPaymentReceived
	case domainhostels.Verified{}.EventName():
		return d.onHostelVerified
	}
	return nil
}

func (d *Dispatcher) onRegistered(ctx context.Context, data []byte) error {
	var ev domainuser.Registered
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	user, err := d.loadUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	token := ""
	if d.Tokens != nil {
		if token, err = d.Tokens.EmailVerificationToken(user.ID); err != nil {
			return err
		}
	}
	return delivered(d.Notifier.Welcome(ctx, user, token))
}

func (d *Dispatcher) onPasswordReset(ctx context.Context, data []byte) error {
	var ev domainuser.PasswordResetRequested
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	if d.Tokens == nil {
		return fmt.Errorf("%w: no token signer for password reset", ErrNotDelivered)
	}
	user, err := d.loadUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	token, err := d.Tokens.PasswordResetToken(user)
	if err != nil {
		return err
	}
	return delivered(d.Notifier.PasswordReset(ctx, user, token))
}

func (d *Dispatcher) onBookingCreated(ctx context.Context, data []byte) error {
	var ev domainbooking.Created
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	view, err := d.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	ok := d.Notifier.BookingConfirmed(ctx, view.guest, view.booking, view.hostel)
	if view.landlordEmail != "" {
		ok = d.Notifier.LandlordNewBooking(ctx, view.landlordEmail, view.guest, view.booking, view.hostel) && ok
	}
	return delivered(ok)
}

func (d *Dispatcher) onBookingCancelled(ctx context.Context, data []byte) error {
	var ev domainbooking.Cancelled
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	view, err := d.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	return delivered(d.Notifier.BookingCancelled(ctx, view.guest, view.booking, view.hostel))
}

func (d *Dispatcher) onBookingRefunded(ctx context.Context, data []byte) error {
	var ev domainbooking.Refunded
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	view, err := d.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	amount := money.Money{Amount: ev.Amount, Currency: ev.Currency}
	return delivered(d.Notifier.RefundProcessed(ctx, view.guest, view.booking, view.hostel, amount))
}

func (d *Dispatcher) onPaymentReceived(ctx context.Context, data []byte) error {
	var ev domainpayments.Received
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	var payment *domainpayments.Payment
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		payment, err = unit.Payments().ByID(ctx, ev.PaymentID)
		return err
	})
	if err != nil {
		return err
	}
	view, err := d.loadBooking(ctx, payment.BookingID)
	if err != nil {
		return err
	}
	ok := d.Notifier.PaymentConfirmed(ctx, view.guest, payment, view.hostel)
	if view.landlordEmail != "" {
		ok = d.Notifier.LandlordPaymentReceived(ctx, view.landlordEmail, payment, view.hostel) && ok
	}
	return delivered(ok)
}

func (d *Dispatcher) onHostelVerified(ctx context.Context, data []byte) error {
	var ev domainhostels.Verified
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	var (
		hostel *domainhostels.Hostel
		to     string
	)
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if hostel, err = unit.Hostels().ByID(ctx, ev.HostelID); err != nil {
			return err
		}
		to, err = landlordEmail(ctx, unit, hostel.LandlordID)
		return err
	})
	if err != nil {
		return err
	}
	if to == "" {
		return nil
	}
	return delivered(d.Notifier.HostelApproved(ctx, to, hostel))
}

// bookingView is everything a booking email needs, loaded in one read.
type bookingView struct {
	booking       *domainbooking.Booking
	hostel        *domainhostels.Hostel
	guest         *domainuser.User
	landlordEmail string
}

func (d *Dispatcher) loadBooking(ctx context.Context, id domainbooking.ID) (bookingView, error) {
	var view bookingView
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if view.booking, err = unit.Bookings().ByID(ctx, id); err != nil {
			return err
		}
		view, err = loadStay(ctx, unit, view.booking)
		return err
	})
	return view, err
}

func loadStay(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) (bookingView, error) {
	view := bookingView{booking: b}
	var err error
	if view.hostel, err = unit.Hostels().ByID(ctx, b.HostelID); err != nil {
		return view, err
	}
	if view.guest, err = unit.Users().ByID(ctx, b.UserID); err != nil {
		return view, err
	}
	view.landlordEmail, err = landlordEmail(ctx, unit, view.hostel.LandlordID)
	return view, err
}

func landlordEmail(ctx context.Context, unit uow.UnitOfWork, id domainuser.LandlordID) (string, error) {
	landlord, err := unit.Landlords().ByID(ctx, id)
	if errors.Is(err, domainuser.ErrLandlordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	owner, err := unit.Users().ByID(ctx, landlord.UserID)
	if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return "", err
	}
	return landlord.NotificationEmail(owner), nil
}

func (d *Dispatcher) loadUser(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var user *domainuser.User
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		user, err = unit.Users().ByID(ctx, id)
		return err
	})
	return user, err
}

// read runs fn in a read-only unit released before any email is sent.
func (d *Dispatcher) read(ctx context.Context, fn func(context.Context, uow.UnitOfWork) error) error {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, d.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(ctx, unit)
}

// permanent reports failures a redelivery cannot fix.
func permanent(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, domainuser.ErrNotFound) ||
		errors.Is(err, domainbooking.ErrNotFound) ||
		errors.Is(err, domainhostels.ErrNotFound) ||
		errors.Is(err, domainpayments.ErrNotFound)
}

func delivered(ok bool) error {
	if !ok {
		return ErrNotDelivered
	}
	return nil
}
