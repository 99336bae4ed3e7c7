package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%kilimani%", likePattern("kilimani"))
	assert.Equal(t, `%50\% off\_now\\%`, likePattern(`50% off_now\`))
}

func TestSearchFilterRendersPlaceholdersInOrder(t *testing.T) {
	furnished := true
	params := domainhostels.SearchParams{
		Location:     "Kilimani",
		MinPrice:     500000,
		MaxPrice:     800000,
		RoomTypes:    []domainhostels.RoomType{domainhostels.RoomSingle, domainhostels.RoomDouble},
		Amenities:    []int{3, 1},
		Furnished:    &furnished,
		VerifiedOnly: true,
	}.Normalized()

	where, args := searchFilter(params)

	assert.Equal(t, " WHERE (lower(location) LIKE $1 OR lower(name) LIKE $1)"+
		" AND price_amount >= $2 AND price_amount <= $3"+
		" AND room_type = ANY($4)"+
		" AND amenities @> $5::integer[]"+
		" AND COALESCE((features->>'furnished')::boolean, false) = $6"+
		" AND is_verified", where)
	assert.Equal(t, []any{"%kilimani%", int64(500000), int64(800000), []string{"single", "double"}, []int{1, 3}, true}, args)
}

func TestSearchFilterEmptyParams(t *testing.T) {
	where, args := searchFilter(domainhostels.SearchParams{}.Normalized())
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestSearchFilterNearRequiresCoordinates(t *testing.T) {
	params := domainhostels.SearchParams{Near: &domainhostels.GeoFilter{Lat: -1.29, Lng: 36.82, RadiusKm: 5}}.Normalized()
	where, args := searchFilter(params)
	assert.Equal(t, " WHERE latitude IS NOT NULL AND longitude IS NOT NULL", where)
	assert.Empty(t, args)
}

func TestSearchOrder(t *testing.T) {
	tie := `created_at DESC, id COLLATE "C"`
	cases := map[domainhostels.Sort]string{
		domainhostels.SortPriceAsc:  "price_amount ASC, " + tie,
		domainhostels.SortPriceDesc: "price_amount DESC, " + tie,
		domainhostels.SortRating:    "rating DESC, " + tie,
		domainhostels.SortNewest:    tie,
		domainhostels.SortRelevance: tie,
	}
	for sort, want := range cases {
		assert.Equal(t, want, searchOrder(domainhostels.SearchParams{Sort: sort}, 0), sort)
	}

	relevance := searchOrder(domainhostels.SearchParams{Sort: domainhostels.SortRelevance}, 4)
	assert.Equal(t, "CASE WHEN lower(name) LIKE $4 THEN 3 WHEN lower(location) LIKE $4 THEN 2 WHEN lower(description) LIKE $4 THEN 1 ELSE 0 END DESC, "+tie, relevance)
}

func TestBookingFilter(t *testing.T) {
	where, args := bookingFilter("user-1", []domainhostels.ID{"h1", "h2"}, domainbooking.StatusConfirmed)
	assert.Equal(t, " WHERE user_id = $1 AND hostel_id = ANY($2) AND status = $3", where)
	assert.Equal(t, []any{domainuser.ID("user-1"), []string{"h1", "h2"}, domainbooking.StatusConfirmed}, args)

	where, args = bookingFilter("", nil, "")
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestLimitArg(t *testing.T) {
	assert.Nil(t, limitArg(0))
	assert.Nil(t, limitArg(-3))
	assert.Equal(t, 10, limitArg(10))
	assert.Equal(t, 0, offsetArg(-1))
}
