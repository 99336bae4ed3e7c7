package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainpayments "hostelhunt/internal/domain/payments"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

const initiatePaymentKey = "payments.initiate"

var anyRole = []domainuser.Role{domainuser.RoleStudent, domainuser.RoleLandlord, domainuser.RoleAdmin}

// InitiateCommand starts an STK push charge for the booking total.
// PhoneNumber falls back to the booking contact number when empty.
type InitiateCommand struct {
	Actor       support.Actor
	BookingID   domainbooking.ID `validate:"required"`
	PhoneNumber string           `validate:"max=20"`
	IdemKey     string
	Now         time.Time
}

func (c InitiateCommand) Key() string                     { return initiatePaymentKey }
func (c InitiateCommand) SelfManagedUnits() bool          { return true }
func (c InitiateCommand) ReplayKey() (string, string)     { return string(c.Actor.ID), c.IdemKey }
func (c InitiateCommand) ReplayTarget() any               { return &dto.STKPushResult{} }
func (c InitiateCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c InitiateCommand) AllowedRoles() []domainuser.Role { return anyRole }

type InitiateHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Handle runs in two units so no lock is held during the gateway call: the
// booking is checked, the charge is pushed, then the payment is recorded after
// the checks are repeated.
func (h *InitiateHandler) Handle(ctx context.Context, cmd InitiateCommand) (*dto.STKPushResult, error) {
	if h.Gateway == nil {
		return nil, policies.ErrGatewayNotConfigured
	}
	charge, err := h.prepare(ctx, cmd)
	if err != nil {
		return nil, err
	}
	resp, err := h.Gateway.InitiateSTKPush(ctx, charge.request)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("stk push failed", "booking_id", cmd.BookingID, "error", err)
		}
		return nil, err
	}
	payment, err := h.record(ctx, cmd, charge, resp)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("stk push sent but not recorded", "booking_id", cmd.BookingID, "checkout_request_id", resp.CheckoutRequestID, "error", err)
		}
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("stk push initiated", "booking_id", payment.BookingID, "payment_id", payment.ID, "checkout_request_id", payment.CheckoutRequestID)
	}
	return &dto.STKPushResult{
		Payment:           dto.MapPayment(payment),
		CheckoutRequestID: payment.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

type pendingCharge struct {
	request policies.STKPushRequest
	total   money.Money
}

func (h *InitiateHandler) prepare(ctx context.Context, cmd InitiateCommand) (pendingCharge, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return pendingCharge{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := payableBooking(ctx, unit, cmd)
	if err != nil {
		return pendingCharge{}, err
	}
	rawPhone := cmd.PhoneNumber
	if rawPhone == "" {
		rawPhone = booking.PhoneNumber
	}
	phone, err := domainpayments.NormalizePhone(rawPhone)
	if err != nil {
		return pendingCharge{}, err
	}
	hostel, err := unit.Hostels().ByID(ctx, booking.HostelID)
	if err != nil {
		return pendingCharge{}, err
	}
	total := booking.Total()
	return pendingCharge{
		total: total,
		request: policies.STKPushRequest{
			PhoneNumber:      phone,
			Amount:           total.WholeUnitsCeil(),
			AccountReference: fmt.Sprintf("Booking-%s", booking.ID),
			Description:      fmt.Sprintf("Payment for %s", hostel.Name),
		},
	}, nil
}

func (h *InitiateHandler) record(ctx context.Context, cmd InitiateCommand, charge pendingCharge, resp policies.STKPushResponse) (*domainpayments.Payment, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	booking, err := payableBooking(ctx, unit, cmd)
	if err != nil {
		return nil, err
	}
	payment, err := domainpayments.NewPending(domainpayments.InitiateParams{
		ID:                domainpayments.ID(uuid.NewString()),
		BookingID:         booking.ID,
		UserID:            booking.UserID,
		Amount:            charge.total,
		PhoneNumber:       charge.request.PhoneNumber,
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Now:               now,
	})
	if err != nil {
		return nil, err
	}
	if err := booking.MarkPaymentPending(now); err != nil {
		return nil, err
	}
	if err := unit.Payments().Save(ctx, payment); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, payment, booking); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	return payment, nil
}

// payableBooking loads the caller's booking and rejects it unless a new charge may start.
func payableBooking(ctx context.Context, unit uow.UnitOfWork, cmd InitiateCommand) (*domainbooking.Booking, error) {
	booking, err := unit.Bookings().ByID(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := booking.EnsureOwner(cmd.Actor.ID); err != nil {
		return nil, err
	}
	if err := ensurePayable(booking); err != nil {
		return nil, err
	}
	existing, err := unit.Payments().ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if err := domainpayments.EnsureNoActive(existing); err != nil {
		return nil, err
	}
	return booking, nil
}

func ensurePayable(booking *domainbooking.Booking) error {
	switch booking.PaymentStatus {
	case domainbooking.PaymentPaid, domainbooking.PaymentRefunded:
		return domainbooking.ErrAlreadyPaid
	}
	if booking.Status != domainbooking.StatusConfirmed && booking.Status != domainbooking.StatusPending {
		return domainpayments.ErrBookingNotPayable
	}
	return nil
}

var _ commands.Handler[InitiateCommand, *dto.STKPushResult] = (*InitiateHandler)(nil)
