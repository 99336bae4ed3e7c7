package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hostelhunt/internal/domain/booking"
	"hostelhunt/internal/domain/shared/events"
	"hostelhunt/internal/domain/shared/money"
	"hostelhunt/internal/domain/user"
)

var (
	ErrNotFound           = errors.New("payments: not found")
	ErrBookingRequired    = errors.New("payments: booking id required")
	ErrCheckoutIDRequired = errors.New("payments: checkout request id required")
	ErrInvalidAmount      = errors.New("payments: amount must be positive")
	ErrPaymentInProgress  = errors.New("payments: a payment for this booking is already pending")
	ErrBookingNotPayable  = errors.New("payments: booking is not awaiting payment")
	ErrNotRefundable      = errors.New("payments: only paid payments can be refunded")
)

type ID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// ResultSuccess is the gateway result code for a completed charge.
const ResultSuccess = 0

type Payment struct {
	ID                ID
	BookingID         booking.ID
	UserID            user.ID
	Amount            money.Money
	PhoneNumber       string
	MerchantRequestID string
	CheckoutRequestID string
	Status            Status
	ResultCode        *int
	ResultDesc        string
	ReceiptNumber     string
	TransactionDate   time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Payment, error)
	ByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	ListByBooking(ctx context.Context, bookingID booking.ID) ([]*Payment, error)
	ListByUser(ctx context.Context, userID user.ID, limit, offset int) ([]*Payment, int, error)
}

type InitiateParams struct {
	ID                ID
	BookingID         booking.ID
	UserID            user.ID
	Amount            money.Money
	PhoneNumber       string
	MerchantRequestID string
	CheckoutRequestID string
	Now               time.Time
}

// NewPending records a charge the gateway accepted for processing.
func NewPending(params InitiateParams) (*Payment, error) {
	if strings.TrimSpace(string(params.BookingID)) == "" {
		return nil, ErrBookingRequired
	}
	if strings.TrimSpace(params.CheckoutRequestID) == "" {
		return nil, ErrCheckoutIDRequired
	}
	if params.Amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := params.Now.UTC()
	p := &Payment{
		ID:                params.ID,
		BookingID:         params.BookingID,
		UserID:            params.UserID,
		Amount:            params.Amount,
		PhoneNumber:       params.PhoneNumber,
		MerchantRequestID: params.MerchantRequestID,
		CheckoutRequestID: params.CheckoutRequestID,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.Record(Initiated{
		PaymentID:         p.ID,
		BookingID:         p.BookingID,
		UserID:            p.UserID,
		Amount:            p.Amount.Amount,
		Currency:          p.Amount.Currency,
		CheckoutRequestID: p.CheckoutRequestID,
		At:                now,
	})
	return p, nil
}

// ChargeAmount is what the gateway is asked for, in whole currency units.
func (p *Payment) ChargeAmount() int64 {
	return p.Amount.WholeUnitsCeil()
}

// EnsureNoActive rejects a new charge while another one is pending or settled.
func EnsureNoActive(existing []*Payment) error {
	for _, p := range existing {
		switch p.Status {
		case StatusPending:
			return ErrPaymentInProgress
		case StatusPaid:
			return booking.ErrAlreadyPaid
		}
	}
	return nil
}

// Settle applies a gateway result. It returns false when the payment was already settled.
func (p *Payment) Settle(result Result, now time.Time) bool {
	if p.Status != StatusPending {
		return false
	}
	code := result.ResultCode
	p.ResultCode = &code
	p.ResultDesc = result.ResultDesc
	p.UpdatedAt = now.UTC()
	if result.MerchantRequestID != "" {
		p.MerchantRequestID = result.MerchantRequestID
	}
	if result.ResultCode != ResultSuccess {
		p.fail(result.ResultDesc)
		return true
	}
	if result.Amount > 0 && result.Amount != p.ChargeAmount() {
		p.ResultDesc = fmt.Sprintf("amount mismatch: paid %d, expected %d", result.Amount, p.ChargeAmount())
		p.fail(p.ResultDesc)
		return true
	}
	p.Status = StatusPaid
	p.ReceiptNumber = result.ReceiptNumber
	p.TransactionDate = result.TransactionDate
	p.Record(Received{
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		UserID:        p.UserID,
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		ReceiptNumber: p.ReceiptNumber,
		At:            p.UpdatedAt,
	})
	return true
}

func (p *Payment) fail(reason string) {
	p.Status = StatusFailed
	p.Record(Failed{PaymentID: p.ID, BookingID: p.BookingID, UserID: p.UserID, Reason: reason, At: p.UpdatedAt})
}

func (p *Payment) MarkRefunded(now time.Time) error {
	if p.Status != StatusPaid {
		return ErrNotRefundable
	}
	p.Status = StatusRefunded
	p.UpdatedAt = now.UTC()
	return nil
}
