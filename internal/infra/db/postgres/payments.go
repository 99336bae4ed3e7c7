package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	domainbooking "hostelhunt/internal/domain/booking"
	domainpayments "hostelhunt/internal/domain/payments"
	domainuser "hostelhunt/internal/domain/user"
)

const paymentColumns = `id, booking_id, user_id, amount, currency, phone_number, merchant_request_id, checkout_request_id,
	status, result_code, result_desc, receipt_number, transaction_date, created_at, updated_at`

const paymentOrder = ` ORDER BY created_at DESC, id COLLATE "C"`

type paymentRepo struct{ q querier }

func (r paymentRepo) ByID(ctx context.Context, id domainpayments.ID) (*domainpayments.Payment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	return payment, notFound(err, domainpayments.ErrNotFound)
}

func (r paymentRepo) ByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domainpayments.Payment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE checkout_request_id = $1`, checkoutRequestID)
	payment, err := scanPayment(row)
	return payment, notFound(err, domainpayments.ErrNotFound)
}

func (r paymentRepo) Save(ctx context.Context, payment *domainpayments.Payment) error {
	if payment == nil || payment.ID == "" {
		return domainpayments.ErrNotFound
	}
	var txDate *time.Time
	if !payment.TransactionDate.IsZero() {
		at := payment.TransactionDate.UTC()
		txDate = &at
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			merchant_request_id = EXCLUDED.merchant_request_id,
			status = EXCLUDED.status,
			result_code = EXCLUDED.result_code,
			result_desc = EXCLUDED.result_desc,
			receipt_number = EXCLUDED.receipt_number,
			transaction_date = EXCLUDED.transaction_date,
			updated_at = EXCLUDED.updated_at
	`, payment.ID, payment.BookingID, payment.UserID, payment.Amount.Amount, payment.Amount.Currency,
		payment.PhoneNumber, payment.MerchantRequestID, payment.CheckoutRequestID, payment.Status,
		payment.ResultCode, payment.ResultDesc, payment.ReceiptNumber, txDate,
		utc(payment.CreatedAt), utc(payment.UpdatedAt))
	return err
}

func (r paymentRepo) ListByBooking(ctx context.Context, bookingID domainbooking.ID) ([]*domainpayments.Payment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`+paymentOrder, bookingID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayment)
}

func (r paymentRepo) ListByUser(ctx context.Context, userID domainuser.ID, limit, offset int) ([]*domainpayments.Payment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM payments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1`+paymentOrder+` LIMIT $2 OFFSET $3`,
		userID, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanPayment)
	return items, total, err
}

func scanPayment(row pgx.Row) (*domainpayments.Payment, error) {
	var (
		payment domainpayments.Payment
		txDate  *time.Time
	)
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount.Amount,
		&payment.Amount.Currency,
		&payment.PhoneNumber,
		&payment.MerchantRequestID,
		&payment.CheckoutRequestID,
		&payment.Status,
		&payment.ResultCode,
		&payment.ResultDesc,
		&payment.ReceiptNumber,
		&txDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if txDate != nil {
		payment.TransactionDate = txDate.UTC()
	}
	payment.CreatedAt = utc(payment.CreatedAt)
	payment.UpdatedAt = utc(payment.UpdatedAt)
	return &payment, nil
}
