package booking

import (
	"errors"
	"time"

	"hostelhunt/internal/domain/shared/daterange"
)

var (
	ErrCheckInNotFuture = errors.New("booking: check-in date must be in the future")
	ErrRefundWindow     = errors.New("booking: refunds are only possible before check-in")
)

// ValidateStay requires a valid range starting strictly after the current day.
func ValidateStay(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if !daterange.Day(dr.CheckIn).After(daterange.Day(now)) {
		return ErrCheckInNotFuture
	}
	return nil
}

// RefundAllowed gates refunds to confirmed or cancelled bookings whose check-in is still ahead.
func RefundAllowed(status Status, dr daterange.DateRange, now time.Time) error {
	if status != StatusConfirmed && status != StatusCancelled {
		return ErrInvalidState
	}
	if !daterange.Day(dr.CheckIn).After(daterange.Day(now)) {
		return ErrRefundWindow
	}
	return nil
}
