package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/policies"
	domainpayments "hostelhunt/internal/domain/payments"
)

type fakeDaraja struct {
	tokenCalls atomic.Int32
	lastPush   pushRequest
	queryReply func(w http.ResponseWriter)
}

func (f *fakeDaraja) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		f.tokenCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok", "expires_in": "3599"})
	})
	mux.HandleFunc(pushPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		writeJSON(w, http.StatusOK, map[string]string{
			"MerchantRequestID":   "m-1",
			"CheckoutRequestID":   "ws_CO_1",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		})
	})
	mux.HandleFunc(queryPath, func(w http.ResponseWriter, r *http.Request) {
		f.queryReply(w)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, fake *fakeDaraja) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		CallbackURL:    "https://api.example.com/api/v1/payments/callback",
		Timeout:        time.Second,
	}, nil)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://sandbox.safaricom.co.ke"}, nil)
	assert.ErrorIs(t, err, policies.ErrGatewayNotConfigured)
}

func TestInitiateSTKPushSignsRequest(t *testing.T) {
	fake := &fakeDaraja{}
	c := newTestClient(t, fake)

	resp, err := c.InitiateSTKPush(context.Background(), policies.STKPushRequest{
		PhoneNumber:      "0712345678",
		Amount:           15000,
		AccountReference: "Booking-0123456789",
		Description:      "Payment for Riverside Hostel",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	assert.Equal(t, "m-1", resp.MerchantRequestID)

	push := fake.lastPush
	assert.Equal(t, "20250310120000", push.Timestamp)
	assert.Equal(t, domainpayments.Password("174379", "passkey", "20250310120000"), push.Password)
	assert.Equal(t, "254712345678", push.PartyA)
	assert.Equal(t, "254712345678", push.PhoneNumber)
	assert.Equal(t, "174379", push.PartyB)
	assert.Equal(t, int64(15000), push.Amount)
	assert.Equal(t, transactionType, push.TransactionType)
	assert.Len(t, push.AccountReference, 12)

	_, err = c.InitiateSTKPush(context.Background(), policies.STKPushRequest{PhoneNumber: "0712345678", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load(), "token is cached")
}

func TestInitiateSTKPushRejectsBadPhone(t *testing.T) {
	c := newTestClient(t, &fakeDaraja{})
	_, err := c.InitiateSTKPush(context.Background(), policies.STKPushRequest{PhoneNumber: "12", Amount: 1})
	assert.ErrorIs(t, err, domainpayments.ErrInvalidPhone)
}

func TestQuerySTKPush(t *testing.T) {
	fake := &fakeDaraja{}
	c := newTestClient(t, fake)

	fake.queryReply = func(w http.ResponseWriter) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"requestId":    "r-1",
			"errorCode":    processingCode,
			"errorMessage": "The transaction is being processed",
		})
	}
	_, pending, err := c.QuerySTKPush(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.True(t, pending)

	fake.queryReply = func(w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]string{
			"ResponseCode":      "0",
			"MerchantRequestID": "m-1",
			"CheckoutRequestID": "ws_CO_1",
			"ResultCode":        "1032",
			"ResultDesc":        "Request cancelled by user",
		})
	}
	result, pending, err := c.QuerySTKPush(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, 1032, result.ResultCode)
	assert.Equal(t, "ws_CO_1", result.CheckoutRequestID)

	fake.queryReply = func(w http.ResponseWriter) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"errorCode": "500.003.02", "errorMessage": "System is busy"})
	}
	_, _, err = c.QuerySTKPush(context.Background(), "ws_CO_1")
	assert.ErrorIs(t, err, policies.ErrGatewayUnavailable)
}
