package hostels_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/dto"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

func actor(u *domainuser.User) support.Actor {
	return support.Actor{ID: u.ID, Role: u.Role}
}

func roomType(rt domainhostels.RoomType) func(*domainhostels.Hostel) {
	return func(h *domainhostels.Hostel) { h.RoomType = rt }
}

func TestSearchFiltersPriceAndRoomTypeAcrossPages(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	fx.Hostel(landlord, "Alpha House", 500, 10)
	fx.Hostel(landlord, "Bravo House", 800, 10)
	fx.Hostel(landlord, "Charlie House", 1200, 10)
	fx.Hostel(landlord, "Delta House", 1500, 10)
	fx.Hostel(landlord, "Echo House", 2500, 10)
	fx.Hostel(landlord, "Foxtrot Dorm", 600, 30, roomType(domainhostels.RoomDormitory))
	h := &hostelsapp.SearchHostelsHandler{UoWFactory: fx.Factory}

	q := hostelsapp.SearchHostelsQuery{
		MaxPrice:  2000,
		RoomTypes: []string{"single,double"},
		SortBy:    "price_asc",
		Page:      2,
		PerPage:   2,
	}
	page, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Hostels, 2)
	assert.Equal(t, "Charlie House", page.Hostels[0].Name)
	assert.Equal(t, "Delta House", page.Hostels[1].Name)

	q.Page = 3
	page, err = h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, page.Hostels)
	assert.Equal(t, 4, page.Total)

	dorms, err := h.Handle(context.Background(), hostelsapp.SearchHostelsQuery{RoomTypes: []string{"dormitory"}})
	require.NoError(t, err)
	require.Len(t, dorms.Hostels, 1)
	assert.Equal(t, "Foxtrot Dorm", dorms.Hostels[0].Name)
}

func TestSearchRejectsUnknownRoomTypeAndClampsPage(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	fx.Hostel(landlord, "Alpha House", 500, 10)
	h := &hostelsapp.SearchHostelsHandler{UoWFactory: fx.Factory}

	_, err := h.Handle(context.Background(), hostelsapp.SearchHostelsQuery{RoomTypes: []string{"single,penthouse"}})
	assert.ErrorIs(t, err, domainhostels.ErrInvalidRoomType)

	var page dto.HostelPage
	require.NotPanics(t, func() {
		page, err = h.Handle(context.Background(), hostelsapp.SearchHostelsQuery{Page: 1e17, PerPage: 100})
	})
	require.NoError(t, err)
	assert.Empty(t, page.Hostels)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, domainhostels.MaxPage, page.CurrentPage)
}

func TestCreateHostelRequiresLandlordProfile(t *testing.T) {
	fx := memtest.New(t)
	owner, _ := fx.Landlord("owner@example.com", "Owner Homes")
	student := fx.Student("kim@example.com")
	h := &hostelsapp.CreateHostelHandler{UoWFactory: fx.Factory, Encoder: outbox.JSONEventEncoder{}}
	cmd := hostelsapp.CreateHostelCommand{
		Actor:       actor(owner),
		Name:        "Sunrise Hostel",
		Location:    "Juja",
		Description: "Twin rooms near the JKUAT main gate.",
		Price:       950.5,
		Capacity:    16,
		RoomType:    "double",
		Amenities:   []int{3, 1, 3},
		Now:         memtest.Today,
	}

	created, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.InDelta(t, 950.5, created.Price, 0.001)
	assert.Equal(t, "KES", created.Currency)
	assert.Equal(t, []int{1, 3}, created.Amenities)
	assert.Equal(t, 1, fx.Outbox.Pending())

	cmd.Actor = actor(student)
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainuser.ErrLandlordNotFound)

	cmd.Actor = actor(owner)
	cmd.RoomType = "penthouse"
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainhostels.ErrInvalidRoomType)
}

func TestDeleteHostelBlockedByBookingsAndOwnership(t *testing.T) {
	fx := memtest.New(t)
	owner, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	rival, _ := fx.Landlord("rival@example.com", "Rival Homes")
	booked := fx.Hostel(landlord, "Busy House", 1000, 10)
	empty := fx.Hostel(landlord, "Quiet House", 1000, 10)
	student := fx.Student("kim@example.com")
	fx.Booking(student, booked, memtest.Today.AddDate(0, 0, 2), memtest.Today.AddDate(0, 0, 4), domainbooking.StatusConfirmed)
	h := &hostelsapp.DeleteHostelHandler{UoWFactory: fx.Factory}

	_, err := h.Handle(context.Background(), hostelsapp.DeleteHostelCommand{Actor: actor(owner), HostelID: booked.ID})
	assert.ErrorIs(t, err, domainhostels.ErrHasBookings)

	_, err = h.Handle(context.Background(), hostelsapp.DeleteHostelCommand{Actor: actor(rival), HostelID: empty.ID})
	assert.ErrorIs(t, err, domainhostels.ErrNotOwner)

	_, err = h.Handle(context.Background(), hostelsapp.DeleteHostelCommand{Actor: actor(owner), HostelID: empty.ID})
	require.NoError(t, err)

	get := &hostelsapp.GetHostelHandler{UoWFactory: fx.Factory}
	_, err = get.Handle(context.Background(), hostelsapp.GetHostelQuery{HostelID: empty.ID})
	assert.ErrorIs(t, err, domainhostels.ErrNotFound)
}

func TestModerationTogglesFlags(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	hostel := fx.Hostel(landlord, "Alpha House", 500, 10)
	h := &hostelsapp.ModerationHandler{UoWFactory: fx.Factory}

	out, err := h.HandleVerify(context.Background(), hostelsapp.SetVerifiedCommand{HostelID: hostel.ID, Verified: true, Now: memtest.Today})
	require.NoError(t, err)
	assert.True(t, out.IsVerified)

	out, err = h.HandleFeature(context.Background(), hostelsapp.SetFeaturedCommand{HostelID: hostel.ID, Featured: true, Now: memtest.Today})
	require.NoError(t, err)
	assert.True(t, out.IsFeatured)
	assert.True(t, out.IsVerified)

	stored := fx.LoadHostel(hostel.ID)
	assert.True(t, stored.Verified)
	assert.True(t, stored.Featured)
}

func TestDiscoveryHelpers(t *testing.T) {
	fx := memtest.New(t)
	_, landlord := fx.Landlord("owner@example.com", "Owner Homes")
	inJuja := func(amenities ...int) func(*domainhostels.Hostel) {
		return func(h *domainhostels.Hostel) {
			h.Location = "Juja"
			h.Amenities = amenities
		}
	}
	fx.Hostel(landlord, "Juja Court", 1000, 10, inJuja(1, 2))
	fx.Hostel(landlord, "Juja Annex", 5000, 10, inJuja(2, 5))
	fx.Hostel(landlord, "Campus View", 3000, 10)
	h := &hostelsapp.DiscoveryHandler{UoWFactory: fx.Factory}
	ctx := context.Background()

	names, err := h.Suggestions(ctx, hostelsapp.SuggestionsQuery{Query: "juja", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Juja", "Juja Annex"}, names)
	names, err = h.Suggestions(ctx, hostelsapp.SuggestionsQuery{Query: "  "})
	require.NoError(t, err)
	assert.Empty(t, names)

	popular, err := h.PopularLocations(ctx, hostelsapp.PopularLocationsQuery{})
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "Juja", popular[0].Location)
	assert.Equal(t, 2, popular[0].Count)

	ranges, err := h.PriceRanges(ctx, hostelsapp.PriceRangesQuery{})
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, ranges.MinPrice, 0.001)
	assert.InDelta(t, 5000.0, ranges.MaxPrice, 0.001)
	assert.InDelta(t, 3000.0, ranges.AvgPrice, 0.001)
	require.Len(t, ranges.Ranges, 4)
	assert.Equal(t, "1000 - 2000", ranges.Ranges[0].Label)
	assert.Equal(t, "4000 - 5000", ranges.Ranges[3].Label)

	opts, err := h.FilterOptions(ctx, hostelsapp.FilterOptionsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, opts.Amenities)
	assert.Equal(t, []string{"Juja", "Nairobi"}, opts.Locations)
	assert.Contains(t, opts.RoomTypes, "dormitory")
	assert.InDelta(t, 5000.0, opts.MaxPrice, 0.001)
}

func TestPriceRangesWithSinglePrice(t *testing.T) {
	out := hostelsapp.BuildPriceRanges(domainhostels.PriceStats{Count: 2, Min: 80000, Max: 80000, Average: 80000})
	assert.Equal(t, "KES", out.Currency)
	require.Len(t, out.Ranges, 1)
	assert.Equal(t, "800 - 800", out.Ranges[0].Label)
}
