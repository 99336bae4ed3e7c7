package hostels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	getHostelKey       = "hostels.get"
	searchHostelsKey   = "hostels.search"
	landlordHostelsKey = "hostels.landlord.list"
)

type GetHostelQuery struct {
	HostelID domainhostels.ID `validate:"required"`
}

func (q GetHostelQuery) Key() string { return getHostelKey }

type GetHostelHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHostelHandler) Handle(ctx context.Context, q GetHostelQuery) (dto.HostelDetail, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostelDetail{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	hostel, err := unit.Hostels().ByID(ctx, q.HostelID)
	if err != nil {
		return dto.HostelDetail{}, err
	}
	detail := dto.HostelDetail{Hostel: dto.MapHostel(hostel)}
	landlord, err := unit.Landlords().ByID(ctx, hostel.LandlordID)
	switch {
	case errors.Is(err, domainuser.ErrLandlordNotFound):
		return detail, nil
	case err != nil:
		return dto.HostelDetail{}, err
	}
	owner, err := unit.Users().ByID(ctx, landlord.UserID)
	if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return dto.HostelDetail{}, err
	}
	detail.Landlord = dto.MapLandlordSummary(landlord, owner)
	return detail, nil
}

// SearchHostelsQuery carries request filters; prices are in major units.
type SearchHostelsQuery struct {
	Location     string  `validate:"max=200"`
	Query        string  `validate:"max=200"`
	MinPrice     float64 `validate:"gte=0"`
	MaxPrice     float64 `validate:"gte=0"`
	RoomTypes    []string
	MinCapacity  int `validate:"gte=0"`
	Amenities    []int
	Furnished    *bool
	VerifiedOnly bool
	FeaturedOnly bool
	Latitude     *float64 `validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `validate:"omitempty,min=-180,max=180"`
	RadiusKm     float64  `validate:"gte=0"`
	SortBy       string   `validate:"omitempty,oneof=price_asc price_desc rating newest relevance"`
	Page         int      `validate:"gte=0"`
	PerPage      int      `validate:"gte=0"`
}

func (q SearchHostelsQuery) Key() string { return searchHostelsKey }

// Params converts the request into domain search parameters. An unknown room
// type is rejected rather than ignored.
func (q SearchHostelsQuery) Params() (domainhostels.SearchParams, error) {
	params := domainhostels.SearchParams{
		Location:     q.Location,
		Query:        q.Query,
		MinPrice:     toMinor(q.MinPrice),
		MaxPrice:     toMinor(q.MaxPrice),
		MinCapacity:  q.MinCapacity,
		Amenities:    q.Amenities,
		Furnished:    q.Furnished,
		VerifiedOnly: q.VerifiedOnly,
		FeaturedOnly: q.FeaturedOnly,
		Sort:         domainhostels.Sort(q.SortBy),
		Page:         q.Page,
		PerPage:      q.PerPage,
	}
	for _, raw := range q.RoomTypes {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			rt, err := domainhostels.ParseRoomType(part)
			if err != nil {
				return domainhostels.SearchParams{}, fmt.Errorf("%w: %q", err, part)
			}
			params.RoomTypes = append(params.RoomTypes, rt)
		}
	}
	if q.Latitude != nil && q.Longitude != nil && q.RadiusKm > 0 {
		params.Near = &domainhostels.GeoFilter{Lat: *q.Latitude, Lng: *q.Longitude, RadiusKm: q.RadiusKm}
	}
	return params.Normalized(), nil
}

type SearchHostelsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchHostelsHandler) Handle(ctx context.Context, q SearchHostelsQuery) (dto.HostelPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostelPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	params, err := q.Params()
	if err != nil {
		return dto.HostelPage{}, err
	}
	result, err := unit.Hostels().Search(ctx, params)
	if err != nil {
		return dto.HostelPage{}, err
	}
	return dto.HostelPage{
		Hostels:     dto.MapHostels(result.Items),
		Total:       result.Total,
		Pages:       result.Pages(params.PerPage),
		CurrentPage: params.Page,
		PerPage:     params.PerPage,
	}, nil
}

type LandlordHostelsQuery struct {
	Actor support.Actor
}

func (q LandlordHostelsQuery) Key() string                     { return landlordHostelsKey }
func (q LandlordHostelsQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q LandlordHostelsQuery) AllowedRoles() []domainuser.Role { return landlordOnly }

type LandlordHostelsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *LandlordHostelsHandler) Handle(ctx context.Context, q LandlordHostelsQuery) ([]dto.Hostel, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	landlord, err := unit.Landlords().ByUserID(ctx, q.Actor.ID)
	if err != nil {
		return nil, err
	}
	items, err := unit.Hostels().ListByLandlord(ctx, landlord.ID)
	if err != nil {
		return nil, err
	}
	return dto.MapHostels(items), nil
}

func toMinor(major float64) int64 {
	if major <= 0 {
		return 0
	}
	return int64(major*100 + 0.5)
}

var (
	_ queries.Handler[GetHostelQuery, dto.HostelDetail]   = (*GetHostelHandler)(nil)
	_ queries.Handler[SearchHostelsQuery, dto.HostelPage] = (*SearchHostelsHandler)(nil)
	_ queries.Handler[LandlordHostelsQuery, []dto.Hostel] = (*LandlordHostelsHandler)(nil)
)
