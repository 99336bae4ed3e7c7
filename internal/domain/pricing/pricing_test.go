package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
)

func TestQuoteMultipliesNightsByPrice(t *testing.T) {
	hostel := &hostels.Hostel{Price: money.Must(250000, "KES")}
	dr, err := daterange.New(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	quote, err := Quote(hostel, dr)
	require.NoError(t, err)
	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, money.Must(750000, "KES"), quote.Total)
}

func TestRecalculateTotalAddsFees(t *testing.T) {
	p := PriceBreakdown{
		Nights:  2,
		Nightly: money.Must(1000, "KES"),
		Fees:    []Fee{{Name: "cleaning", Amount: money.Must(500, "KES")}},
	}
	require.NoError(t, p.RecalculateTotal())
	assert.Equal(t, int64(2500), p.Total.Amount)

	p.Fees = []Fee{{Name: "bad", Amount: money.Money{Amount: -1, Currency: "KES"}}}
	assert.ErrorIs(t, p.RecalculateTotal(), ErrNegativeComponent)
}

func TestQuoteRejectsEmptyRange(t *testing.T) {
	_, err := Quote(&hostels.Hostel{Price: money.Must(100, "KES")}, daterange.DateRange{})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	_, err = Quote(nil, daterange.DateRange{})
	assert.ErrorIs(t, err, ErrHostelRequired)
}
