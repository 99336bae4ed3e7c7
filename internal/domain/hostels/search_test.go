package hostels

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/domain/shared/money"
)

func fixture(n int, mutate func(i int, h *Hostel)) []*Hostel {
	out := make([]*Hostel, 0, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		h := &Hostel{
			ID:        ID(fmt.Sprintf("h%03d", i)),
			Name:      fmt.Sprintf("Hostel %d", i),
			Location:  "Nairobi",
			Price:     money.Must(int64(i)*10000, "KES"),
			Capacity:  10,
			RoomType:  RoomSingle,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if mutate != nil {
			mutate(i, h)
		}
		out = append(out, h)
	}
	return out
}

func search(items []*Hostel, params SearchParams) SearchResult {
	params = params.Normalized()
	var hits []*Hostel
	for _, h := range items {
		if params.Matches(h) {
			hits = append(hits, h)
		}
	}
	SortHostels(hits, params)
	return Paginate(hits, params)
}

func TestSearchPriceAndRoomTypeWithPagination(t *testing.T) {
	items := fixture(120, func(i int, h *Hostel) {
		if i%2 == 1 {
			h.RoomType = RoomDouble
		}
	})
	params := SearchParams{
		MinPrice:  100000,
		MaxPrice:  500000,
		RoomTypes: []RoomType{RoomSingle},
		Sort:      SortPriceAsc,
		Page:      2,
		PerPage:   10,
	}
	result := search(items, params)

	// singles priced 1000..5000 are i = 10, 12, ..., 50
	assert.Equal(t, 21, result.Total)
	assert.Equal(t, 3, result.Pages(10))
	require.Len(t, result.Items, 10)
	for idx, h := range result.Items {
		assert.Equal(t, RoomSingle, h.RoomType)
		assert.GreaterOrEqual(t, h.Price.Amount, int64(100000))
		assert.LessOrEqual(t, h.Price.Amount, int64(500000))
		assert.Equal(t, int64(10+2*(10+idx))*10000, h.Price.Amount)
	}
}

func TestNormalizedDefaults(t *testing.T) {
	p := SearchParams{Page: -1, PerPage: 1000, Sort: "bogus", MaxPrice: 5, MinPrice: 10}.Normalized()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, SortNewest, p.Sort)
	assert.Zero(t, p.MaxPrice)

	p = SearchParams{}.Normalized()
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestMatchesFlagsAndFeatures(t *testing.T) {
	furnished := true
	items := fixture(4, func(i int, h *Hostel) {
		h.Verified = i%2 == 0
		h.Featured = i == 0
		h.Features = map[string]bool{FeatureFurnished: i < 2}
		h.Amenities = []int{1, 2}
		if i == 3 {
			h.Amenities = []int{1}
		}
	})
	result := search(items, SearchParams{VerifiedOnly: true})
	assert.Equal(t, 2, result.Total)
	result = search(items, SearchParams{FeaturedOnly: true})
	assert.Equal(t, 1, result.Total)
	result = search(items, SearchParams{Furnished: &furnished})
	assert.Equal(t, 2, result.Total)
	result = search(items, SearchParams{Amenities: []int{2, 1}})
	assert.Equal(t, 3, result.Total)
}

func TestLocationAndQuery(t *testing.T) {
	items := fixture(3, func(i int, h *Hostel) {
		switch i {
		case 0:
			h.Location = "Kisumu"
			h.Description = "near the lake front"
		case 1:
			h.Name = "Lakeview Lodge"
		case 2:
			h.Location = "Lake Road, Nakuru"
		}
	})
	result := search(items, SearchParams{Location: "KISUMU"})
	require.Equal(t, 1, result.Total)
	assert.Equal(t, ID("h000"), result.Items[0].ID)

	result = search(items, SearchParams{Query: "lake", Sort: SortRelevance})
	require.Equal(t, 3, result.Total)
	assert.Equal(t, []ID{"h001", "h002", "h000"}, ids(result.Items))
}

func TestSortRatingFallsBackToNewest(t *testing.T) {
	items := fixture(3, func(i int, h *Hostel) {
		h.Rating = 4
		if i == 0 {
			h.Rating = 5
		}
	})
	result := search(items, SearchParams{Sort: SortRating})
	assert.Equal(t, []ID{"h000", "h002", "h001"}, ids(result.Items))

	result = search(items, SearchParams{Sort: SortPriceDesc})
	assert.Equal(t, []ID{"h002", "h001", "h000"}, ids(result.Items))
}

func TestGeoRadius(t *testing.T) {
	items := fixture(2, func(i int, h *Hostel) {
		if i == 0 {
			h.Coordinates = &Coordinates{Lat: -1.2921, Lng: 36.8219}
		}
	})
	result := search(items, SearchParams{Near: &GeoFilter{Lat: -1.30, Lng: 36.80, RadiusKm: 5}})
	require.Equal(t, 1, result.Total)

	d := DistanceKm(-1.2921, 36.8219, -0.0917, 34.7680)
	assert.InDelta(t, 264, d, 5)
}

func TestPaginateBeyondEnd(t *testing.T) {
	result := search(fixture(5, nil), SearchParams{Page: 3, PerPage: 2})
	assert.Equal(t, 5, result.Total)
	assert.Len(t, result.Items, 1)
	result = search(fixture(5, nil), SearchParams{Page: 9, PerPage: 2})
	assert.Empty(t, result.Items)
}

func TestHugePageIsClampedAndEmpty(t *testing.T) {
	assert.Equal(t, MaxPage, SearchParams{Page: 1e17}.Normalized().Page)
	require.NotPanics(t, func() {
		result := search(fixture(5, nil), SearchParams{Page: 1e17, PerPage: 100})
		assert.Equal(t, 5, result.Total)
		assert.Empty(t, result.Items)
	})
	// Offset overflows when params skip Normalized.
	require.NotPanics(t, func() {
		result := Paginate(fixture(5, nil), SearchParams{Page: 1e17, PerPage: 100})
		assert.Empty(t, result.Items)
	})
}

func TestUnknownRoomTypeMatchesNothing(t *testing.T) {
	result := search(fixture(3, nil), SearchParams{RoomTypes: []RoomType{"penthouse"}})
	assert.Zero(t, result.Total)

	result = search(fixture(3, nil), SearchParams{RoomTypes: []RoomType{"penthouse", " Single "}})
	assert.Equal(t, 3, result.Total)
}

func ids(items []*Hostel) []ID {
	out := make([]ID, 0, len(items))
	for _, h := range items {
		out = append(out, h.ID)
	}
	return out
}
