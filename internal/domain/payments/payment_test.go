package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/domain/booking"
	"hostelhunt/internal/domain/shared/money"
)

var now = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func pendingPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPending(InitiateParams{
		ID:                "p1",
		BookingID:         "b1",
		UserID:            "u1",
		Amount:            money.Must(250050, "KES"),
		PhoneNumber:       "254712345678",
		MerchantRequestID: "m-1",
		CheckoutRequestID: "ws_CO_1",
		Now:               now,
	})
	require.NoError(t, err)
	p.ClearEvents()
	return p
}

func TestNewPendingValidates(t *testing.T) {
	_, err := NewPending(InitiateParams{BookingID: "b", Amount: money.Must(100, "KES")})
	assert.ErrorIs(t, err, ErrCheckoutIDRequired)
	_, err = NewPending(InitiateParams{BookingID: "b", CheckoutRequestID: "c"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = NewPending(InitiateParams{CheckoutRequestID: "c", Amount: money.Must(100, "KES")})
	assert.ErrorIs(t, err, ErrBookingRequired)
}

func TestChargeAmountRoundsUp(t *testing.T) {
	p := pendingPayment(t)
	assert.Equal(t, int64(2501), p.ChargeAmount())
}

func TestSettleSuccess(t *testing.T) {
	p := pendingPayment(t)
	txAt := time.Date(2024, 3, 5, 10, 1, 0, 0, time.UTC)
	changed := p.Settle(Result{ResultCode: 0, ResultDesc: "ok", Amount: 2501, ReceiptNumber: "NLJ7RT61SV", TransactionDate: txAt}, now)
	require.True(t, changed)
	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, "NLJ7RT61SV", p.ReceiptNumber)
	require.Len(t, p.PendingEvents(), 1)
	assert.Equal(t, "payment.received", p.PendingEvents()[0].EventName())

	assert.False(t, p.Settle(Result{ResultCode: 1032}, now), "replay must be ignored")
	assert.Equal(t, StatusPaid, p.Status)
}

func TestSettleAmountMismatchFails(t *testing.T) {
	p := pendingPayment(t)
	require.True(t, p.Settle(Result{ResultCode: 0, Amount: 10}, now))
	assert.Equal(t, StatusFailed, p.Status)
	assert.Contains(t, p.ResultDesc, "amount mismatch")
	assert.Equal(t, "payment.failed", p.PendingEvents()[0].EventName())
}

func TestSettleFailureCode(t *testing.T) {
	p := pendingPayment(t)
	require.True(t, p.Settle(Result{ResultCode: 1032, ResultDesc: "Request cancelled by user"}, now))
	assert.Equal(t, StatusFailed, p.Status)
	require.NotNil(t, p.ResultCode)
	assert.Equal(t, 1032, *p.ResultCode)
}

func TestRefundOnlyWhenPaid(t *testing.T) {
	p := pendingPayment(t)
	assert.ErrorIs(t, p.MarkRefunded(now), ErrNotRefundable)
	p.Settle(Result{ResultCode: 0}, now)
	require.NoError(t, p.MarkRefunded(now))
	assert.Equal(t, StatusRefunded, p.Status)
}

func TestEnsureNoActive(t *testing.T) {
	assert.NoError(t, EnsureNoActive([]*Payment{{Status: StatusFailed}}))
	assert.ErrorIs(t, EnsureNoActive([]*Payment{{Status: StatusPending}}), ErrPaymentInProgress)
	assert.ErrorIs(t, EnsureNoActive([]*Payment{{Status: StatusPaid}}), booking.ErrAlreadyPaid)
}
