package dto

import (
	"time"

	domainpayments "hostelhunt/internal/domain/payments"
)

type Payment struct {
	ID                string     `json:"id"`
	BookingID         string     `json:"booking_id"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	PhoneNumber       string     `json:"phone_number"`
	Status            string     `json:"status"`
	CheckoutRequestID string     `json:"checkout_request_id"`
	MerchantRequestID string     `json:"merchant_request_id,omitempty"`
	ResultDesc        string     `json:"result_desc,omitempty"`
	ReceiptNumber     string     `json:"receipt_number,omitempty"`
	TransactionDate   *time.Time `json:"transaction_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func MapPayment(p *domainpayments.Payment) Payment {
	if p == nil {
		return Payment{}
	}
	out := Payment{
		ID:                string(p.ID),
		BookingID:         string(p.BookingID),
		Amount:            p.Amount.Major(),
		Currency:          p.Amount.Currency,
		PhoneNumber:       p.PhoneNumber,
		Status:            string(p.Status),
		CheckoutRequestID: p.CheckoutRequestID,
		MerchantRequestID: p.MerchantRequestID,
		ResultDesc:        p.ResultDesc,
		ReceiptNumber:     p.ReceiptNumber,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if !p.TransactionDate.IsZero() {
		ts := p.TransactionDate
		out.TransactionDate = &ts
	}
	return out
}

func MapPayments(items []*domainpayments.Payment) []Payment {
	out := make([]Payment, 0, len(items))
	for _, p := range items {
		out = append(out, MapPayment(p))
	}
	return out
}

type PaymentPage struct {
	Payments    []Payment `json:"payments"`
	Total       int       `json:"total"`
	Pages       int       `json:"pages"`
	CurrentPage int       `json:"current_page"`
	PerPage     int       `json:"per_page"`
}

type STKPushResult struct {
	Payment           Payment `json:"payment"`
	CheckoutRequestID string  `json:"checkout_request_id"`
	CustomerMessage   string  `json:"customer_message,omitempty"`
}
