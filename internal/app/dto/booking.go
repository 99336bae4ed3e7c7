package dto

import (
	"time"

	domainbooking "hostelhunt/internal/domain/booking"
	"hostelhunt/internal/domain/shared/daterange"
)

type Booking struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	HostelID      string    `json:"hostel_id"`
	HostelName    string    `json:"hostel_name,omitempty"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	Nights        int       `json:"nights"`
	Guests        int       `json:"guests"`
	PhoneNumber   string    `json:"phone_number"`
	TotalPrice    float64   `json:"total_price"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	RefundReason  string    `json:"refund_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking, hostelName string) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:            string(b.ID),
		UserID:        string(b.UserID),
		HostelID:      string(b.HostelID),
		HostelName:    hostelName,
		CheckIn:       b.Range.CheckIn.Format(daterange.Layout),
		CheckOut:      b.Range.CheckOut.Format(daterange.Layout),
		Nights:        b.Range.Nights(),
		Guests:        b.Guests,
		PhoneNumber:   b.PhoneNumber,
		TotalPrice:    b.Total().Major(),
		Currency:      b.Total().Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CancelReason:  b.CancelReason,
		RefundReason:  b.RefundReason,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

type BookingPage struct {
	Bookings    []Booking `json:"bookings"`
	Total       int       `json:"total"`
	Pages       int       `json:"pages"`
	CurrentPage int       `json:"current_page"`
	PerPage     int       `json:"per_page"`
}

type Refund struct {
	Booking      Booking `json:"booking"`
	RefundAmount float64 `json:"refund_amount"`
	Currency     string  `json:"currency"`
}
