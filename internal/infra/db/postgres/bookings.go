package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/pricing"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

const bookingColumns = `id, user_id, hostel_id, check_in, check_out, guests, phone_number, nights, nightly_amount,
	currency, fees, total_amount, status, payment_status, cancel_reason, refund_reason, created_at, updated_at`

const bookingOrder = ` ORDER BY created_at DESC, id COLLATE "C"`

type feeRow struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type bookingRepo struct{ q querier }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	row := r.q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	return booking, notFound(err, domainbooking.ErrNotFound)
}

func (r bookingRepo) Save(ctx context.Context, booking *domainbooking.Booking) error {
	if booking == nil || booking.ID == "" {
		return domainbooking.ErrNotFound
	}
	fees := make([]feeRow, 0, len(booking.Price.Fees))
	for _, fee := range booking.Price.Fees {
		fees = append(fees, feeRow{Name: fee.Name, Amount: fee.Amount.Amount, Currency: fee.Amount.Currency})
	}
	feesJSON, err := json.Marshal(fees)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			guests = EXCLUDED.guests,
			phone_number = EXCLUDED.phone_number,
			nights = EXCLUDED.nights,
			nightly_amount = EXCLUDED.nightly_amount,
			currency = EXCLUDED.currency,
			fees = EXCLUDED.fees,
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			cancel_reason = EXCLUDED.cancel_reason,
			refund_reason = EXCLUDED.refund_reason,
			updated_at = EXCLUDED.updated_at
	`, booking.ID, booking.UserID, booking.HostelID, booking.Range.CheckIn, booking.Range.CheckOut,
		booking.Guests, booking.PhoneNumber, booking.Price.Nights, booking.Price.Nightly.Amount,
		booking.Price.Total.Currency, string(feesJSON), booking.Price.Total.Amount, booking.Status,
		booking.PaymentStatus, booking.CancelReason, booking.RefundReason,
		utc(booking.CreatedAt), utc(booking.UpdatedAt))
	return err
}

func (r bookingRepo) List(ctx context.Context, params domainbooking.ListParams) ([]*domainbooking.Booking, int, error) {
	if params.HostelIDs != nil && len(params.HostelIDs) == 0 {
		return []*domainbooking.Booking{}, 0, nil
	}
	where, args := bookingFilter(params.UserID, params.HostelIDs, params.Status)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limitArg(params.Limit), offsetArg(params.Offset))
	sql := fmt.Sprintf(`SELECT %s FROM bookings%s%s LIMIT $%d OFFSET $%d`,
		bookingColumns, where, bookingOrder, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanBooking)
	return items, total, err
}

func (r bookingRepo) HasCompletedStay(ctx context.Context, userID domainuser.ID, hostelID domainhostels.ID, today time.Time) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND hostel_id = $2 AND status = $3 AND check_out <= $4
		)
	`, userID, hostelID, domainbooking.StatusCompleted, daterange.Day(today)).Scan(&ok)
	return ok, err
}

func (r bookingRepo) Overlapping(ctx context.Context, hostelID domainhostels.ID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	rows, err := r.q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE hostel_id = $1 AND status IN ($2, $3) AND check_in < $5 AND check_out > $4`+bookingOrder,
		hostelID, domainbooking.StatusPending, domainbooking.StatusConfirmed, dr.CheckIn, dr.CheckOut)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBooking)
}

func (r bookingRepo) ListByDate(ctx context.Context, query domainbooking.DateQuery) ([]*domainbooking.Booking, error) {
	column := "check_in"
	if query.Field == domainbooking.FieldCheckOut {
		column = "check_out"
	}
	op := "="
	if query.OnOrBefore {
		op = "<="
	}
	conds := []string{fmt.Sprintf("%s %s $1", column, op)}
	args := []any{daterange.Day(query.Day)}
	if query.Status != "" {
		args = append(args, query.Status)
		conds = append(conds, "status = $2")
	}
	rows, err := r.q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings`+whereClause(conds)+bookingOrder, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBooking)
}

func (r bookingRepo) CountByHostel(ctx context.Context, hostelID domainhostels.ID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE hostel_id = $1`, hostelID).Scan(&n)
	return n, err
}

// Stats counts bookings per status; revenue sums confirmed and completed stays.
func (r bookingRepo) Stats(ctx context.Context, filter domainbooking.StatsFilter) (domainbooking.Stats, error) {
	stats := domainbooking.Stats{ByStatus: make(map[domainbooking.Status]int), Currency: money.DefaultCurrency}
	if filter.HostelIDs != nil && len(filter.HostelIDs) == 0 {
		return stats, nil
	}
	where, args := bookingFilter(filter.UserID, filter.HostelIDs, "")
	args = append(args, domainbooking.StatusConfirmed, domainbooking.StatusCompleted)
	earning := fmt.Sprintf("status IN ($%d, $%d)", len(args)-1, len(args))
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
		SELECT status, count(*),
			COALESCE(sum(total_amount) FILTER (WHERE %[1]s), 0),
			COALESCE(min(currency) FILTER (WHERE %[1]s), '')
		FROM bookings%[2]s
		GROUP BY status
	`, earning, where), args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	currency := ""
	for rows.Next() {
		var (
			status  domainbooking.Status
			count   int
			revenue int64
			cur     string
		)
		if err := rows.Scan(&status, &count, &revenue, &cur); err != nil {
			return stats, err
		}
		stats.Total += count
		stats.ByStatus[status] = count
		stats.Revenue += revenue
		if currency == "" {
			currency = cur
		}
	}
	if currency != "" {
		stats.Currency = currency
	}
	return stats, rows.Err()
}

func bookingFilter(userID domainuser.ID, hostelIDs []domainhostels.ID, status domainbooking.Status) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if userID != "" {
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if hostelIDs != nil {
		ids := make([]string, 0, len(hostelIDs))
		for _, id := range hostelIDs {
			ids = append(ids, string(id))
		}
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("hostel_id = ANY($%d)", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	return whereClause(conds), args
}

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		booking  domainbooking.Booking
		currency string
		nightly  int64
		total    int64
		feesJSON []byte
	)
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.HostelID,
		&booking.Range.CheckIn,
		&booking.Range.CheckOut,
		&booking.Guests,
		&booking.PhoneNumber,
		&booking.Price.Nights,
		&nightly,
		&currency,
		&feesJSON,
		&total,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.CancelReason,
		&booking.RefundReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	var fees []feeRow
	if err := json.Unmarshal(feesJSON, &fees); err != nil {
		return nil, err
	}
	for _, fee := range fees {
		booking.Price.Fees = append(booking.Price.Fees, pricing.Fee{
			Name:   fee.Name,
			Amount: money.Money{Amount: fee.Amount, Currency: fee.Currency},
		})
	}
	booking.Price.Nightly = money.Money{Amount: nightly, Currency: currency}
	booking.Price.Total = money.Money{Amount: total, Currency: currency}
	booking.Range.CheckIn = daterange.Day(booking.Range.CheckIn)
	booking.Range.CheckOut = daterange.Day(booking.Range.CheckOut)
	booking.CreatedAt = utc(booking.CreatedAt)
	booking.UpdatedAt = utc(booking.UpdatedAt)
	return &booking, nil
}
