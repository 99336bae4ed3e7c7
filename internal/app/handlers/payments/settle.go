package payments

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
	domainpayments "hostelhunt/internal/domain/payments"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	callbackKey    = "payments.callback"
	queryStatusKey = "payments.query_status"
)

// CallbackCommand carries the raw gateway callback body.
type CallbackCommand struct {
	Payload []byte `validate:"required"`
	Now     time.Time
}

func (c CallbackCommand) Key() string { return callbackKey }

// CallbackResult reports what the callback did; unknown or replayed callbacks are not errors.
type CallbackResult struct {
	CheckoutRequestID string
	Settled           bool
	Status            domainpayments.Status
}

type CallbackHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CallbackHandler) Handle(ctx context.Context, cmd CallbackCommand) (CallbackResult, error) {
	result, err := domainpayments.ParseCallback(cmd.Payload)
	if err != nil {
		return CallbackResult{}, err
	}
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return CallbackResult{}, err
	}
	defer unit.Release(ctx)

	out := CallbackResult{CheckoutRequestID: result.CheckoutRequestID}
	payment, err := unit.Payments().ByCheckoutRequestID(ctx, result.CheckoutRequestID)
	if errors.Is(err, domainpayments.ErrNotFound) {
		if h.Logger != nil {
			h.Logger.Warn("callback for unknown checkout request", "checkout_request_id", result.CheckoutRequestID)
		}
		return out, nil
	}
	if err != nil {
		return CallbackResult{}, err
	}
	settled, err := settle(ctx, unit, h.Encoder, h.Logger, payment, result, support.Now(cmd.Now))
	if err != nil {
		return CallbackResult{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return CallbackResult{}, err
	}
	out.Settled = settled
	out.Status = payment.Status
	if h.Logger != nil {
		h.Logger.Info("payment callback processed",
			"payment_id", payment.ID,
			"booking_id", payment.BookingID,
			"status", payment.Status,
			"settled", settled,
			"result_code", result.ResultCode,
		)
	}
	return out, nil
}

// QueryStatusCommand asks the gateway about a pending charge and settles it when answered.
type QueryStatusCommand struct {
	Actor     support.Actor
	PaymentID domainpayments.ID `validate:"required"`
	Now       time.Time
}

func (c QueryStatusCommand) Key() string                     { return queryStatusKey }
func (c QueryStatusCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c QueryStatusCommand) AllowedRoles() []domainuser.Role { return anyRole }

type QueryStatusHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *QueryStatusHandler) Handle(ctx context.Context, cmd QueryStatusCommand) (dto.Payment, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Payment{}, err
	}
	defer unit.Release(ctx)

	payment, err := unit.Payments().ByID(ctx, cmd.PaymentID)
	if err != nil {
		return dto.Payment{}, err
	}
	if !cmd.Actor.IsAdmin() && payment.UserID != cmd.Actor.ID {
		return dto.Payment{}, policies.ErrForbidden
	}
	if payment.Status != domainpayments.StatusPending || h.Gateway == nil {
		return dto.MapPayment(payment), nil
	}
	result, pending, err := h.Gateway.QuerySTKPush(ctx, payment.CheckoutRequestID)
	if err != nil {
		return dto.Payment{}, err
	}
	if pending {
		return dto.MapPayment(payment), nil
	}
	if result.CheckoutRequestID == "" {
		result.CheckoutRequestID = payment.CheckoutRequestID
	}
	if _, err := settle(ctx, unit, h.Encoder, h.Logger, payment, result, support.Now(cmd.Now)); err != nil {
		return dto.Payment{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.Payment{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("payment status queried", "payment_id", payment.ID, "status", payment.Status)
	}
	return dto.MapPayment(payment), nil
}

// settle applies a gateway result to the payment and its booking inside unit.
// Money taken for a refunded booking is recorded on the payment only and
// logged for a manual refund.
func settle(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, logger *slog.Logger, payment *domainpayments.Payment, result domainpayments.Result, now time.Time) (bool, error) {
	if !payment.Settle(result, now) {
		return false, nil
	}
	booking, err := unit.Bookings().ByID(ctx, payment.BookingID)
	if err != nil {
		return false, err
	}
	if payment.Status == domainpayments.StatusPaid {
		err := booking.MarkPaid(now)
		switch {
		case errors.Is(err, domainbooking.ErrClosedToPayment):
			if logger != nil {
				logger.Error("payment settled on a refunded booking, manual refund required",
					"payment_id", payment.ID,
					"booking_id", booking.ID,
					"receipt", payment.ReceiptNumber,
				)
			}
		case err != nil:
			return false, err
		}
	} else {
		booking.MarkPaymentFailed(now)
	}
	if err := unit.Payments().Save(ctx, payment); err != nil {
		return false, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return false, err
	}
	if err := support.RecordEvents(ctx, unit, encoder, payment, booking); err != nil {
		return false, err
	}
	return true, nil
}

var (
	_ commands.Handler[CallbackCommand, CallbackResult] = (*CallbackHandler)(nil)
	_ commands.Handler[QueryStatusCommand, dto.Payment] = (*QueryStatusHandler)(nil)
)
