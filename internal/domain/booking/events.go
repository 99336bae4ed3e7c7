package booking

import (
	"time"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/user"
)

type Created struct {
	BookingID ID         `json:"booking_id"`
	UserID    user.ID    `json:"user_id"`
	HostelID  hostels.ID `json:"hostel_id"`
	CheckIn   time.Time  `json:"check_in"`
	CheckOut  time.Time  `json:"check_out"`
	Guests    int        `json:"guests"`
	Total     int64      `json:"total"`
	Currency  string     `json:"currency"`
	Status    Status     `json:"status"`
	At        time.Time  `json:"at"`
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	BookingID ID        `json:"booking_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
}

func (e StatusChanged) EventName() string     { return "booking.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID ID         `json:"booking_id"`
	UserID    user.ID    `json:"user_id"`
	HostelID  hostels.ID `json:"hostel_id"`
	Reason    string     `json:"reason,omitempty"`
	At        time.Time  `json:"at"`
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Refunded struct {
	BookingID ID         `json:"booking_id"`
	UserID    user.ID    `json:"user_id"`
	HostelID  hostels.ID `json:"hostel_id"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Reason    string     `json:"reason,omitempty"`
	At        time.Time  `json:"at"`
}

func (e Refunded) EventName() string     { return "booking.refunded" }
func (e Refunded) AggregateID() string   { return string(e.BookingID) }
func (e Refunded) OccurredAt() time.Time { return e.At }
