package hostels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/domain/shared/money"
)

var now = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func validParams() CreateParams {
	return CreateParams{
		ID:          "h1",
		LandlordID:  "l1",
		Name:        "Green Court",
		Location:    "Nairobi, Westlands",
		Description: "Quiet rooms close to campus",
		Price:       money.Must(1500000, "KES"),
		Capacity:    40,
		RoomType:    RoomSingle,
		Amenities:   []int{3, 1, 3},
		Now:         now,
	}
}

func TestNewHostelNormalizes(t *testing.T) {
	h, err := New(validParams())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, h.Amenities)
	assert.Equal(t, "KES", h.Price.Currency)
	require.Len(t, h.PendingEvents(), 1)
	assert.Equal(t, "hostel.created", h.PendingEvents()[0].EventName())
}

func TestNewHostelBounds(t *testing.T) {
	cases := map[string]struct {
		mutate func(*CreateParams)
		want   error
	}{
		"negative price":  {func(p *CreateParams) { p.Price = money.Money{Amount: -1, Currency: "KES"} }, ErrNegativePrice},
		"zero capacity":   {func(p *CreateParams) { p.Capacity = 0 }, ErrCapacityOutOfRange},
		"capacity 1001":   {func(p *CreateParams) { p.Capacity = 1001 }, ErrCapacityOutOfRange},
		"bad room type":   {func(p *CreateParams) { p.RoomType = "penthouse" }, ErrInvalidRoomType},
		"short name":      {func(p *CreateParams) { p.Name = "a" }, ErrInvalidName},
		"no landlord":     {func(p *CreateParams) { p.LandlordID = "" }, ErrLandlordRequired},
		"bad coordinates": {func(p *CreateParams) { p.Coordinates = &Coordinates{Lat: 91} }, ErrInvalidCoordinates},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := New(params)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	for _, capacity := range []int{MinCapacity, MaxCapacity} {
		params := validParams()
		params.Capacity = capacity
		_, err := New(params)
		assert.NoError(t, err)
	}
	params := validParams()
	params.Price = money.Must(0, "KES")
	_, err := New(params)
	assert.NoError(t, err)
}

func TestApplyIsAtomic(t *testing.T) {
	h, err := New(validParams())
	require.NoError(t, err)
	h.ClearEvents()

	name := "Renamed Court"
	capacity := 0
	assert.ErrorIs(t, h.Apply(Update{Name: &name, Capacity: &capacity}, now), ErrCapacityOutOfRange)
	assert.Equal(t, "Green Court", h.Name)
	assert.Empty(t, h.PendingEvents())

	capacity = 10
	require.NoError(t, h.Apply(Update{Name: &name, Capacity: &capacity}, now))
	assert.Equal(t, "Renamed Court", h.Name)
	assert.Equal(t, 10, h.Capacity)
}

func TestSetVerifiedRecordsOnce(t *testing.T) {
	h, err := New(validParams())
	require.NoError(t, err)
	h.ClearEvents()
	h.SetVerified(true, now)
	h.SetVerified(true, now)
	require.Len(t, h.PendingEvents(), 1)
	assert.Equal(t, "hostel.verified", h.PendingEvents()[0].EventName())
}

func TestHasAmenitiesIsSubset(t *testing.T) {
	h := &Hostel{Amenities: []int{1, 12, 3}}
	assert.True(t, h.HasAmenities(nil))
	assert.True(t, h.HasAmenities([]int{1, 3}))
	assert.False(t, h.HasAmenities([]int{2}))
	assert.False(t, h.HasAmenities([]int{1, 2}))
}

func TestAddImageLimit(t *testing.T) {
	h := &Hostel{}
	for i := 0; i < 20; i++ {
		require.NoError(t, h.AddImage("https://img.example/x.jpg", now))
	}
	assert.ErrorIs(t, h.AddImage("https://img.example/y.jpg", now), ErrTooManyImages)
}
