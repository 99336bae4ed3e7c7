package policies

import (
	"context"
	"errors"

	domainpayments "hostelhunt/internal/domain/payments"
)

var (
	ErrGatewayNotConfigured = errors.New("payments gateway is not configured")
	ErrGatewayUnavailable   = errors.New("payments gateway request failed")
)

type STKPushRequest struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseDescription string
	CustomerMessage     string
}

// PaymentGateway initiates and queries mobile-money charges.
type PaymentGateway interface {
	InitiateSTKPush(ctx context.Context, req STKPushRequest) (STKPushResponse, error)
	// QuerySTKPush returns pending=true while the customer has not answered the prompt.
	QuerySTKPush(ctx context.Context, checkoutRequestID string) (result domainpayments.Result, pending bool, err error)
}
