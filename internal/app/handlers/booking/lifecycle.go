package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	updateStatusKey  = "booking.update_status"
	cancelBookingKey = "booking.cancel"
	refundBookingKey = "booking.refund"
)

var anyRole = []domainuser.Role{domainuser.RoleStudent, domainuser.RoleLandlord, domainuser.RoleAdmin}

// UpdateStatusCommand is issued by an administrator or the landlord owning the hostel.
type UpdateStatusCommand struct {
	Actor     support.Actor
	BookingID domainbooking.ID `validate:"required"`
	Status    string           `validate:"required"`
	Now       time.Time
}

func (c UpdateStatusCommand) Key() string                { return updateStatusKey }
func (c UpdateStatusCommand) ActorRole() domainuser.Role { return c.Actor.Role }

func (c UpdateStatusCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleLandlord, domainuser.RoleAdmin}
}

type CancelCommand struct {
	Actor     support.Actor
	BookingID domainbooking.ID `validate:"required"`
	Reason    string           `validate:"max=500"`
	Now       time.Time
}

func (c CancelCommand) Key() string                     { return cancelBookingKey }
func (c CancelCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c CancelCommand) AllowedRoles() []domainuser.Role { return anyRole }

type RefundCommand struct {
	Actor     support.Actor
	BookingID domainbooking.ID `validate:"required"`
	Reason    string           `validate:"max=500"`
	Now       time.Time
}

func (c RefundCommand) Key() string                     { return refundBookingKey }
func (c RefundCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c RefundCommand) AllowedRoles() []domainuser.Role { return anyRole }

// LifecycleHandler drives status changes of existing bookings.
type LifecycleHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *LifecycleHandler) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (dto.Booking, error) {
	next, err := domainbooking.ParseTargetStatus(cmd.Status)
	if err != nil {
		return dto.Booking{}, err
	}
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer unit.Release(ctx)

	booking, err := unit.Bookings().ByID(ctx, cmd.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	hostel, err := unit.Hostels().ByID(ctx, booking.HostelID)
	if err != nil {
		return dto.Booking{}, err
	}
	if !cmd.Actor.IsAdmin() {
		if err := ensureHostelOwner(ctx, unit, cmd.Actor, hostel); err != nil {
			return dto.Booking{}, err
		}
	}
	from := booking.Status
	if err := booking.UpdateStatus(next, support.Now(cmd.Now)); err != nil {
		return dto.Booking{}, err
	}
	if err := h.persist(ctx, unit, booking); err != nil {
		return dto.Booking{}, err
	}
	if h.Logger != nil && from != booking.Status {
		h.Logger.Info("booking status changed", "booking_id", booking.ID, "from", from, "to", booking.Status, "by", cmd.Actor.ID)
	}
	return dto.MapBooking(booking, hostel.Name), nil
}

func (h *LifecycleHandler) Cancel(ctx context.Context, cmd CancelCommand) (dto.Booking, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer unit.Release(ctx)

	booking, err := ownBooking(ctx, unit, cmd.Actor, cmd.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := booking.Cancel(cmd.Reason, support.Now(cmd.Now)); err != nil {
		return dto.Booking{}, err
	}
	if err := h.persist(ctx, unit, booking); err != nil {
		return dto.Booking{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "by", cmd.Actor.ID)
	}
	return dto.MapBooking(booking, hostelName(ctx, unit, booking.HostelID)), nil
}

// Refund moves the booking to refunded and marks its settled payment refunded.
// No money is moved; the refund is a bookkeeping state.
func (h *LifecycleHandler) Refund(ctx context.Context, cmd RefundCommand) (dto.Refund, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Refund{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	booking, err := ownBooking(ctx, unit, cmd.Actor, cmd.BookingID)
	if err != nil {
		return dto.Refund{}, err
	}
	payments, err := unit.Payments().ListByBooking(ctx, booking.ID)
	if err != nil {
		return dto.Refund{}, err
	}
	// A live STK charge could still settle after the refund.
	for _, p := range payments {
		if p.Status == domainpayments.StatusPending {
			return dto.Refund{}, domainpayments.ErrPaymentInProgress
		}
	}
	amount, err := booking.Refund(cmd.Reason, now)
	if err != nil {
		return dto.Refund{}, err
	}
	for _, p := range payments {
		if p.Status != domainpayments.StatusPaid {
			continue
		}
		if err := p.MarkRefunded(now); err != nil {
			return dto.Refund{}, err
		}
		if err := unit.Payments().Save(ctx, p); err != nil {
			return dto.Refund{}, err
		}
	}
	if err := h.persist(ctx, unit, booking); err != nil {
		return dto.Refund{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking refunded", "booking_id", booking.ID, "amount", amount.String(), "by", cmd.Actor.ID)
	}
	return dto.Refund{
		Booking:      dto.MapBooking(booking, hostelName(ctx, unit, booking.HostelID)),
		RefundAmount: amount.Major(),
		Currency:     amount.Currency,
	}, nil
}

func (h *LifecycleHandler) persist(ctx context.Context, unit *support.Unit, booking *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, booking); err != nil {
		return err
	}
	return unit.Commit(ctx)
}

// ownBooking loads a booking the actor owns; administrators may act on any booking.
func ownBooking(ctx context.Context, unit uow.UnitOfWork, actor support.Actor, id domainbooking.ID) (*domainbooking.Booking, error) {
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return booking, nil
	}
	if err := booking.EnsureOwner(actor.ID); err != nil {
		return nil, err
	}
	return booking, nil
}

func ensureHostelOwner(ctx context.Context, unit uow.UnitOfWork, actor support.Actor, hostel *domainhostels.Hostel) error {
	landlord, err := unit.Landlords().ByUserID(ctx, actor.ID)
	if errors.Is(err, domainuser.ErrLandlordNotFound) {
		return policies.ErrForbidden
	}
	if err != nil {
		return err
	}
	return hostel.EnsureOwner(landlord.ID)
}

func hostelName(ctx context.Context, unit uow.UnitOfWork, id domainhostels.ID) string {
	hostel, err := unit.Hostels().ByID(ctx, id)
	if err != nil {
		return ""
	}
	return hostel.Name
}

var (
	_ commands.HandlerFunc[UpdateStatusCommand, dto.Booking] = (*LifecycleHandler)(nil).UpdateStatus
	_ commands.HandlerFunc[CancelCommand, dto.Booking]       = (*LifecycleHandler)(nil).Cancel
	_ commands.HandlerFunc[RefundCommand, dto.Refund]        = (*LifecycleHandler)(nil).Refund
)
