package pricing

import (
	"errors"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: fees cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrInvalidNights     = errors.New("pricing: nights must be positive")
	ErrHostelRequired    = errors.New("pricing: hostel is required")
)

type Fee struct {
	Name   string
	Amount money.Money
}

// PriceBreakdown is the quote stored with a booking.
type PriceBreakdown struct {
	Nights  int
	Nightly money.Money
	Fees    []Fee
	Total   money.Money
}

func (p *PriceBreakdown) Validate() error {
	if p.Nightly.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrInvalidNights
	}
	return nil
}

// RecalculateTotal sets Total to nights × nightly plus fees.
func (p *PriceBreakdown) RecalculateTotal() error {
	if err := p.Validate(); err != nil {
		return err
	}
	total := p.Nightly.Multiply(int64(p.Nights))
	for _, fee := range p.Fees {
		if fee.Amount.Amount < 0 {
			return ErrNegativeComponent
		}
		sum, err := total.Add(fee.Amount)
		if err != nil {
			return err
		}
		total = sum
	}
	p.Total = total
	return nil
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Fees = append([]Fee(nil), p.Fees...)
	return clone
}

// Quote prices a stay at the hostel's nightly rate.
func Quote(hostel *hostels.Hostel, dr daterange.DateRange) (PriceBreakdown, error) {
	if hostel == nil {
		return PriceBreakdown{}, ErrHostelRequired
	}
	if err := dr.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	nightly := hostel.Price
	if nightly.Currency == "" {
		nightly.Currency = money.DefaultCurrency
	}
	breakdown := PriceBreakdown{Nights: dr.Nights(), Nightly: nightly}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}
