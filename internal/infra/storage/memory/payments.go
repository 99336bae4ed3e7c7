package memory

import (
	"context"
	"sort"

	domainbooking "hostelhunt/internal/domain/booking"
	domainpayments "hostelhunt/internal/domain/payments"
	"hostelhunt/internal/domain/shared/events"
	domainuser "hostelhunt/internal/domain/user"
)

type paymentRepo struct{ u *Unit }

func (r paymentRepo) ByID(_ context.Context, id domainpayments.ID) (*domainpayments.Payment, error) {
	payment, ok := r.u.store.payments[id]
	if !ok {
		return nil, domainpayments.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (r paymentRepo) ByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*domainpayments.Payment, error) {
	for _, payment := range r.u.store.payments {
		if payment.CheckoutRequestID == checkoutRequestID {
			return clonePayment(payment), nil
		}
	}
	return nil, domainpayments.ErrNotFound
}

func (r paymentRepo) Save(_ context.Context, payment *domainpayments.Payment) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if payment == nil || payment.ID == "" {
		return domainpayments.ErrNotFound
	}
	remember(r.u, r.u.store.payments, payment.ID)
	r.u.store.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r paymentRepo) ListByBooking(_ context.Context, bookingID domainbooking.ID) ([]*domainpayments.Payment, error) {
	return r.filter(func(p *domainpayments.Payment) bool { return p.BookingID == bookingID }), nil
}

func (r paymentRepo) ListByUser(_ context.Context, userID domainuser.ID, limit, offset int) ([]*domainpayments.Payment, int, error) {
	matched := r.filter(func(p *domainpayments.Payment) bool { return p.UserID == userID })
	return window(matched, limit, offset), len(matched), nil
}

func (r paymentRepo) filter(keep func(*domainpayments.Payment) bool) []*domainpayments.Payment {
	out := []*domainpayments.Payment{}
	for _, payment := range r.u.store.payments {
		if keep(payment) {
			out = append(out, clonePayment(payment))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clonePayment(payment *domainpayments.Payment) *domainpayments.Payment {
	copied := *payment
	copied.EventRecorder = events.EventRecorder{}
	if payment.ResultCode != nil {
		code := *payment.ResultCode
		copied.ResultCode = &code
	}
	return &copied
}
