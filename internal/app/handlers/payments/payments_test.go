package payments_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "hostelhunt/internal/app/handlers/booking"
	"hostelhunt/internal/app/handlers/payments"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainpayments "hostelhunt/internal/domain/payments"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

type fakeGateway struct {
	requests []policies.STKPushRequest
	query    domainpayments.Result
	pending  bool
	onPush   func()
}

func (g *fakeGateway) InitiateSTKPush(_ context.Context, req policies.STKPushRequest) (policies.STKPushResponse, error) {
	g.requests = append(g.requests, req)
	if g.onPush != nil {
		g.onPush()
	}
	n := len(g.requests)
	return policies.STKPushResponse{
		MerchantRequestID: fmt.Sprintf("mr-%d", n),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", n),
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *fakeGateway) QuerySTKPush(context.Context, string) (domainpayments.Result, bool, error) {
	return g.query, g.pending, nil
}

func actor(u *domainuser.User) support.Actor {
	return support.Actor{ID: u.ID, Role: u.Role}
}

func callback(checkoutID string, code int, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{
		"MerchantRequestID":"mr-1",
		"CheckoutRequestID":%q,
		"ResultCode":%d,
		"ResultDesc":"done",
		"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":%d},
			{"Name":"MpesaReceiptNumber","Value":"QKT7XYZ"},
			{"Name":"TransactionDate","Value":20250310120000},
			{"Name":"PhoneNumber","Value":254712345678}
		]}}}}`, checkoutID, code, amount))
}

func TestInitiateThenCallbackSettlesBooking(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 2), memtest.Today.AddDate(0, 0, 4), domainbooking.StatusPending)
	gateway := &fakeGateway{}
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: gateway}
	cb := &payments.CallbackHandler{UoWFactory: fx.Factory}

	started, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	require.NoError(t, err)
	require.Len(t, gateway.requests, 1)
	assert.Equal(t, int64(2000), gateway.requests[0].Amount)
	assert.Equal(t, "254712345678", gateway.requests[0].PhoneNumber)
	assert.Equal(t, "ws_CO_1", started.CheckoutRequestID)
	assert.Equal(t, domainbooking.PaymentPending, fx.LoadBooking(booking.ID).PaymentStatus)

	_, err = initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	assert.ErrorIs(t, err, domainpayments.ErrPaymentInProgress)

	res, err := cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_1", 0, 2000), Now: memtest.Today})
	require.NoError(t, err)
	assert.True(t, res.Settled)
	assert.Equal(t, domainpayments.StatusPaid, res.Status)

	stored := fx.LoadBooking(booking.ID)
	assert.Equal(t, domainbooking.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)

	replay, err := cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_1", 0, 2000), Now: memtest.Today})
	require.NoError(t, err)
	assert.False(t, replay.Settled)

	_, err = initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	assert.ErrorIs(t, err, domainbooking.ErrAlreadyPaid)
}

func TestCallbackFailureAndUnknownCheckout(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 2), memtest.Today.AddDate(0, 0, 4), domainbooking.StatusConfirmed)
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: &fakeGateway{}}
	cb := &payments.CallbackHandler{UoWFactory: fx.Factory}

	_, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, PhoneNumber: "+254 722 000 111", Now: memtest.Today})
	require.NoError(t, err)

	unknown, err := cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_missing", 0, 2000)})
	require.NoError(t, err)
	assert.False(t, unknown.Settled)

	_, err = cb.Handle(context.Background(), payments.CallbackCommand{Payload: []byte(`{"Body":{}}`)})
	assert.ErrorIs(t, err, domainpayments.ErrInvalidCallback)

	failed, err := cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_1", 1032, 0), Now: memtest.Today})
	require.NoError(t, err)
	assert.True(t, failed.Settled)
	assert.Equal(t, domainpayments.StatusFailed, failed.Status)
	assert.Equal(t, domainbooking.PaymentUnpaid, fx.LoadBooking(booking.ID).PaymentStatus)

	// A failed charge frees the booking for a new attempt.
	_, err = initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	assert.NoError(t, err)
}

func TestInitiateWithoutGateway(t *testing.T) {
	fx := memtest.New(t)
	h := &payments.InitiateHandler{UoWFactory: fx.Factory}
	_, err := h.Handle(context.Background(), payments.InitiateCommand{BookingID: "b-1"})
	assert.ErrorIs(t, err, policies.ErrGatewayNotConfigured)
}

func TestQueryStatusSettlesAnsweredCharge(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	other := fx.Student("lee@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 2), memtest.Today.AddDate(0, 0, 3), domainbooking.StatusConfirmed)
	gateway := &fakeGateway{pending: true}
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: gateway}
	query := &payments.QueryStatusHandler{UoWFactory: fx.Factory, Gateway: gateway}

	started, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	require.NoError(t, err)
	paymentID := domainpayments.ID(started.Payment.ID)

	_, err = query.Handle(context.Background(), payments.QueryStatusCommand{Actor: actor(other), PaymentID: paymentID})
	assert.ErrorIs(t, err, policies.ErrForbidden)

	still, err := query.Handle(context.Background(), payments.QueryStatusCommand{Actor: actor(student), PaymentID: paymentID})
	require.NoError(t, err)
	assert.Equal(t, string(domainpayments.StatusPending), still.Status)

	gateway.pending = false
	gateway.query = domainpayments.Result{ResultCode: 0, ResultDesc: "processed", ReceiptNumber: "QKT7ABC"}
	paid, err := query.Handle(context.Background(), payments.QueryStatusCommand{Actor: actor(student), PaymentID: paymentID, Now: memtest.Today})
	require.NoError(t, err)
	assert.Equal(t, string(domainpayments.StatusPaid), paid.Status)
	assert.Equal(t, domainbooking.PaymentPaid, fx.LoadBooking(booking.ID).PaymentStatus)
}

func TestRefundWaitsForPendingCharge(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 3), memtest.Today.AddDate(0, 0, 5), domainbooking.StatusConfirmed)
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: &fakeGateway{}}
	cb := &payments.CallbackHandler{UoWFactory: fx.Factory}
	lifecycle := &bookingapp.LifecycleHandler{UoWFactory: fx.Factory}
	refund := bookingapp.RefundCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today}

	_, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	require.NoError(t, err)

	_, err = lifecycle.Refund(context.Background(), refund)
	assert.ErrorIs(t, err, domainpayments.ErrPaymentInProgress)
	assert.Equal(t, domainbooking.StatusConfirmed, fx.LoadBooking(booking.ID).Status)

	_, err = cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_1", 0, 2000), Now: memtest.Today})
	require.NoError(t, err)

	_, err = lifecycle.Refund(context.Background(), refund)
	require.NoError(t, err)
	stored := fx.LoadBooking(booking.ID)
	assert.Equal(t, domainbooking.StatusRefunded, stored.Status)
	assert.Equal(t, domainbooking.PaymentRefunded, stored.PaymentStatus)
	fx.Read(func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := unit.Payments().ByCheckoutRequestID(ctx, "ws_CO_1")
		require.NoError(t, err)
		assert.Equal(t, domainpayments.StatusRefunded, p.Status)
		return nil
	})
}

func TestLateCallbackKeepsRefundedBooking(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 3), memtest.Today.AddDate(0, 0, 5), domainbooking.StatusConfirmed)
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: &fakeGateway{}}
	cb := &payments.CallbackHandler{UoWFactory: fx.Factory}

	_, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	require.NoError(t, err)
	// Refunded out of band while the charge was still open.
	fx.Write(func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if _, err := b.Refund("host unavailable", memtest.Today); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, b)
	})

	res, err := cb.Handle(context.Background(), payments.CallbackCommand{Payload: callback("ws_CO_1", 0, 2000), Now: memtest.Today})
	require.NoError(t, err)
	assert.True(t, res.Settled)
	assert.Equal(t, domainpayments.StatusPaid, res.Status)

	stored := fx.LoadBooking(booking.ID)
	assert.Equal(t, domainbooking.StatusRefunded, stored.Status)
	assert.Equal(t, domainbooking.PaymentRefunded, stored.PaymentStatus)
}

func TestInitiateHoldsNoUnitDuringPush(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Green Court", 1000, 10)
	student := fx.Student("kim@example.com")
	booking := fx.Booking(student, hostel, memtest.Today.AddDate(0, 0, 3), memtest.Today.AddDate(0, 0, 5), domainbooking.StatusConfirmed)

	// The guest cancels while the phone prompt is open.
	cancelled := make(chan error, 1)
	gateway := &fakeGateway{onPush: func() {
		go func() {
			ctx := context.Background()
			unit, err := fx.Factory.Begin(ctx, uow.TxOptions{})
			if err != nil {
				cancelled <- err
				return
			}
			b, err := unit.Bookings().ByID(ctx, booking.ID)
			if err == nil {
				err = b.Cancel("changed plans", memtest.Today)
			}
			if err == nil {
				err = unit.Bookings().Save(ctx, b)
			}
			if err != nil {
				_ = unit.Rollback(ctx)
				cancelled <- err
				return
			}
			cancelled <- unit.Commit(ctx)
		}()
		select {
		case err := <-cancelled:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("store still locked during the gateway call")
		}
	}}
	initiate := &payments.InitiateHandler{UoWFactory: fx.Factory, Gateway: gateway}

	_, err := initiate.Handle(context.Background(), payments.InitiateCommand{Actor: actor(student), BookingID: booking.ID, Now: memtest.Today})
	assert.ErrorIs(t, err, domainpayments.ErrBookingNotPayable)
	assert.Len(t, gateway.requests, 1)
	stored := fx.LoadBooking(booking.ID)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
	assert.Equal(t, domainbooking.PaymentUnpaid, stored.PaymentStatus)
}
