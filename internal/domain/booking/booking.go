package booking

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/pricing"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/events"
	"hostelhunt/internal/domain/shared/money"
	"hostelhunt/internal/domain/user"
)

var (
	ErrNotFound         = errors.New("booking: not found")
	ErrUserRequired     = errors.New("booking: user id required")
	ErrHostelRequired   = errors.New("booking: hostel id required")
	ErrInvalidGuests    = errors.New("booking: guests must be between 1 and 20")
	ErrInvalidPhone     = errors.New("booking: phone number must contain at least 10 digits")
	ErrInvalidStatus    = errors.New("booking: unknown status")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrCapacityExceeded = errors.New("booking: hostel capacity exceeded for the requested dates")
	ErrNotOwner         = errors.New("booking: not owned by user")
	ErrAlreadyPaid      = errors.New("booking: already paid")
	ErrClosedToPayment  = errors.New("booking: refunded bookings cannot take payments")
)

const (
	MinGuests      = 1
	MaxGuests      = 20
	minPhoneDigits = 10
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusRefunded  Status = "refunded"
)

// ParseStatus accepts any known status, including terminal ones.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow, StatusRefunded:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// ParseTargetStatus accepts only the statuses reachable through UpdateStatus.
func ParseTargetStatus(raw string) (Status, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return "", err
	}
	switch status {
	case StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return status, nil
	}
	return "", ErrInvalidStatus
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether UpdateStatus may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            ID
	UserID        user.ID
	HostelID      hostels.ID
	Range         daterange.DateRange
	Guests        int
	PhoneNumber   string
	Price         pricing.PriceBreakdown
	Status        Status
	PaymentStatus PaymentStatus
	CancelReason  string
	RefundReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	events.EventRecorder
}

type ListParams struct {
	UserID    user.ID
	HostelIDs []hostels.ID
	Status    Status
	Limit     int
	Offset    int
}

type DateField string

const (
	FieldCheckIn  DateField = "check_in"
	FieldCheckOut DateField = "check_out"
)

// DateQuery selects bookings in Status whose Field equals Day, or falls on or before it with OnOrBefore.
type DateQuery struct {
	Status     Status
	Field      DateField
	Day        time.Time
	OnOrBefore bool
}

// Matches evaluates the query against a booking.
func (q DateQuery) Matches(b *Booking) bool {
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	value := b.Range.CheckIn
	if q.Field == FieldCheckOut {
		value = b.Range.CheckOut
	}
	day := daterange.Day(q.Day)
	if q.OnOrBefore {
		return !value.After(day)
	}
	return value.Equal(day)
}

type StatsFilter struct {
	UserID    user.ID
	HostelIDs []hostels.ID
}

type Stats struct {
	Total    int
	ByStatus map[Status]int
	// Revenue sums confirmed and completed bookings, in minor units.
	Revenue  int64
	Currency string
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	List(ctx context.Context, params ListParams) ([]*Booking, int, error)
	HasCompletedStay(ctx context.Context, userID user.ID, hostelID hostels.ID, today time.Time) (bool, error)
	// Overlapping returns pending and confirmed bookings of the hostel intersecting dr.
	Overlapping(ctx context.Context, hostelID hostels.ID, dr daterange.DateRange) ([]*Booking, error)
	ListByDate(ctx context.Context, query DateQuery) ([]*Booking, error)
	CountByHostel(ctx context.Context, hostelID hostels.ID) (int, error)
	Stats(ctx context.Context, filter StatsFilter) (Stats, error)
}

type CreateParams struct {
	ID              ID
	UserID          user.ID
	HostelID        hostels.ID
	Range           daterange.DateRange
	Guests          int
	PhoneNumber     string
	Price           pricing.PriceBreakdown
	PaymentRequired bool
	Now             time.Time
}

func New(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(string(params.HostelID)) == "" {
		return nil, ErrHostelRequired
	}
	if err := ValidateStay(params.Range, params.Now); err != nil {
		return nil, err
	}
	if params.Guests < MinGuests || params.Guests > MaxGuests {
		return nil, ErrInvalidGuests
	}
	phone := strings.TrimSpace(params.PhoneNumber)
	if countDigits(phone) < minPhoneDigits {
		return nil, ErrInvalidPhone
	}
	price := params.Price
	if err := price.RecalculateTotal(); err != nil {
		return nil, err
	}
	status := StatusConfirmed
	if params.PaymentRequired {
		status = StatusPending
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:            params.ID,
		UserID:        params.UserID,
		HostelID:      params.HostelID,
		Range:         params.Range,
		Guests:        params.Guests,
		PhoneNumber:   phone,
		Price:         price,
		Status:        status,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(Created{
		BookingID: b.ID,
		UserID:    b.UserID,
		HostelID:  b.HostelID,
		CheckIn:   b.Range.CheckIn,
		CheckOut:  b.Range.CheckOut,
		Guests:    b.Guests,
		Total:     b.Total().Amount,
		Currency:  b.Total().Currency,
		Status:    b.Status,
		At:        now,
	})
	return b, nil
}

func (b *Booking) Total() money.Money {
	return b.Price.Total
}

// UpdateStatus applies a transition from the table. Requesting the current status is a no-op.
func (b *Booking) UpdateStatus(next Status, now time.Time) error {
	if next == b.Status {
		return nil
	}
	if !CanTransition(b.Status, next) {
		return ErrInvalidState
	}
	from := b.Status
	b.Status = next
	b.UpdatedAt = now.UTC()
	b.Record(StatusChanged{BookingID: b.ID, From: from, To: next, At: b.UpdatedAt})
	if next == StatusCancelled {
		b.Record(Cancelled{BookingID: b.ID, UserID: b.UserID, HostelID: b.HostelID, Reason: b.CancelReason, At: b.UpdatedAt})
	}
	return nil
}

// Cancel is the guest-initiated cancellation of a pending or confirmed booking.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status == StatusCancelled {
		return nil
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.CancelReason = strings.TrimSpace(reason)
	return b.UpdateStatus(StatusCancelled, now)
}

// Refund moves a confirmed or cancelled booking to refunded while check-in is still ahead.
func (b *Booking) Refund(reason string, now time.Time) (money.Money, error) {
	if err := RefundAllowed(b.Status, b.Range, now); err != nil {
		return money.Money{}, err
	}
	from := b.Status
	b.Status = StatusRefunded
	b.PaymentStatus = PaymentRefunded
	b.RefundReason = strings.TrimSpace(reason)
	b.UpdatedAt = now.UTC()
	amount := b.Total()
	b.Record(StatusChanged{BookingID: b.ID, From: from, To: StatusRefunded, At: b.UpdatedAt})
	b.Record(Refunded{
		BookingID: b.ID,
		UserID:    b.UserID,
		HostelID:  b.HostelID,
		Amount:    amount.Amount,
		Currency:  amount.Currency,
		Reason:    b.RefundReason,
		At:        b.UpdatedAt,
	})
	return amount, nil
}

// Complete marks a confirmed stay finished once check-out has been reached.
func (b *Booking) Complete(today time.Time) (bool, error) {
	if b.Status != StatusConfirmed {
		return false, nil
	}
	if b.Range.CheckOut.After(daterange.Day(today)) {
		return false, nil
	}
	return true, b.UpdateStatus(StatusCompleted, today)
}

// MarkPaymentPending records that a gateway charge was initiated.
func (b *Booking) MarkPaymentPending(now time.Time) error {
	if b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentRefunded {
		return ErrAlreadyPaid
	}
	if b.Status != StatusConfirmed && b.Status != StatusPending {
		return ErrInvalidState
	}
	b.PaymentStatus = PaymentPending
	b.UpdatedAt = now.UTC()
	return nil
}

// MarkPaid settles the booking; a pending booking becomes confirmed.
// A cancelled booking stays cancelled but becomes refundable.
func (b *Booking) MarkPaid(now time.Time) error {
	if b.Status == StatusRefunded || b.PaymentStatus == PaymentRefunded {
		return ErrClosedToPayment
	}
	b.PaymentStatus = PaymentPaid
	b.UpdatedAt = now.UTC()
	if b.Status == StatusPending {
		return b.UpdateStatus(StatusConfirmed, now)
	}
	return nil
}

func (b *Booking) MarkPaymentFailed(now time.Time) {
	if b.PaymentStatus != PaymentPending {
		return
	}
	b.PaymentStatus = PaymentUnpaid
	b.UpdatedAt = now.UTC()
}

func (b *Booking) EnsureOwner(userID user.ID) error {
	if b.UserID != userID {
		return ErrNotOwner
	}
	return nil
}

// Active reports whether the booking still holds capacity at the hostel.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// CheckCapacity rejects a stay when overlapping guests plus the request exceed capacity.
func CheckCapacity(capacity, guests int, overlapping []*Booking) error {
	taken := 0
	for _, other := range overlapping {
		if other.Active() {
			taken += other.Guests
		}
	}
	if taken+guests > capacity {
		return ErrCapacityExceeded
	}
	return nil
}

func countDigits(value string) int {
	n := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
