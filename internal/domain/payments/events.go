package payments

import (
	"time"

	"hostelhunt/internal/domain/booking"
	"hostelhunt/internal/domain/user"
)

type Initiated struct {
	PaymentID         ID         `json:"payment_id"`
	BookingID         booking.ID `json:"booking_id"`
	UserID            user.ID    `json:"user_id"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	CheckoutRequestID string     `json:"checkout_request_id"`
	At                time.Time  `json:"at"`
}

func (e Initiated) EventName() string     { return "payment.initiated" }
func (e Initiated) AggregateID() string   { return string(e.PaymentID) }
func (e Initiated) OccurredAt() time.Time { return e.At }

type Received struct {
	PaymentID     ID         `json:"payment_id"`
	BookingID     booking.ID `json:"booking_id"`
	UserID        user.ID    `json:"user_id"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	ReceiptNumber string     `json:"receipt_number"`
	At            time.Time  `json:"at"`
}

func (e Received) EventName() string     { return "payment.received" }
func (e Received) AggregateID() string   { return string(e.PaymentID) }
func (e Received) OccurredAt() time.Time { return e.At }

type Failed struct {
	PaymentID ID         `json:"payment_id"`
	BookingID booking.ID `json:"booking_id"`
	UserID    user.ID    `json:"user_id"`
	Reason    string     `json:"reason"`
	At        time.Time  `json:"at"`
}

func (e Failed) EventName() string     { return "payment.failed" }
func (e Failed) AggregateID() string   { return string(e.PaymentID) }
func (e Failed) OccurredAt() time.Time { return e.At }
