package hostels

import (
	"context"
	"fmt"
	"math"
	"strings"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/money"
)

const (
	suggestionsKey      = "hostels.search.suggestions"
	popularLocationsKey = "hostels.search.popular_locations"
	priceRangesKey      = "hostels.search.price_ranges"
	filterOptionsKey    = "hostels.search.filters"

	defaultSuggestions = 10
	maxSuggestions     = 20
	defaultLocations   = 10
	priceBuckets       = 4
)

type SuggestionsQuery struct {
	Query string `validate:"max=100"`
	Limit int    `validate:"gte=0"`
}

func (q SuggestionsQuery) Key() string { return suggestionsKey }

type PopularLocationsQuery struct {
	Limit int `validate:"gte=0,lte=50"`
}

func (q PopularLocationsQuery) Key() string { return popularLocationsKey }

type PriceRangesQuery struct{}

func (PriceRangesQuery) Key() string { return priceRangesKey }

type FilterOptionsQuery struct{}

func (FilterOptionsQuery) Key() string { return filterOptionsKey }

// DiscoveryHandler serves the search helper endpoints.
type DiscoveryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *DiscoveryHandler) Suggestions(ctx context.Context, q SuggestionsQuery) ([]string, error) {
	text := strings.TrimSpace(q.Query)
	if text == "" {
		return []string{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSuggestions
	}
	if limit > maxSuggestions {
		limit = maxSuggestions
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return unit.Hostels().Suggest(ctx, text, limit)
}

func (h *DiscoveryHandler) PopularLocations(ctx context.Context, q PopularLocationsQuery) ([]dto.LocationCount, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLocations
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	counts, err := unit.Hostels().PopularLocations(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LocationCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, dto.LocationCount{Location: c.Location, Count: c.Count})
	}
	return out, nil
}

func (h *DiscoveryHandler) PriceRanges(ctx context.Context, _ PriceRangesQuery) (dto.PriceRanges, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PriceRanges{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	stats, err := unit.Hostels().PriceStats(ctx)
	if err != nil {
		return dto.PriceRanges{}, err
	}
	return BuildPriceRanges(stats), nil
}

// BuildPriceRanges splits [min, max] into equal-width buckets.
func BuildPriceRanges(stats domainhostels.PriceStats) dto.PriceRanges {
	currency := stats.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	out := dto.PriceRanges{Currency: currency, Ranges: []dto.PriceRange{}}
	if stats.Count == 0 {
		return out
	}
	out.MinPrice = float64(stats.Min) / 100
	out.MaxPrice = float64(stats.Max) / 100
	out.AvgPrice = math.Round(stats.Average) / 100
	if stats.Max <= stats.Min {
		out.Ranges = append(out.Ranges, dto.PriceRange{
			Label: formatRange(out.MinPrice, out.MaxPrice),
			Min:   out.MinPrice,
			Max:   out.MaxPrice,
		})
		return out
	}
	width := float64(stats.Max-stats.Min) / priceBuckets
	for i := 0; i < priceBuckets; i++ {
		lo := (float64(stats.Min) + width*float64(i)) / 100
		hi := (float64(stats.Min) + width*float64(i+1)) / 100
		if i == priceBuckets-1 {
			hi = out.MaxPrice
		}
		lo, hi = math.Round(lo), math.Round(hi)
		out.Ranges = append(out.Ranges, dto.PriceRange{Label: formatRange(lo, hi), Min: lo, Max: hi})
	}
	return out
}

func formatRange(lo, hi float64) string {
	return fmt.Sprintf("%.0f - %.0f", lo, hi)
}

func (h *DiscoveryHandler) FilterOptions(ctx context.Context, _ FilterOptionsQuery) (dto.FilterOptions, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.FilterOptions{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	amenities, err := unit.Hostels().AmenityIDs(ctx)
	if err != nil {
		return dto.FilterOptions{}, err
	}
	stats, err := unit.Hostels().PriceStats(ctx)
	if err != nil {
		return dto.FilterOptions{}, err
	}
	locations, err := unit.Hostels().PopularLocations(ctx, 0)
	if err != nil {
		return dto.FilterOptions{}, err
	}

	opts := dto.FilterOptions{
		RoomTypes: make([]string, 0, len(domainhostels.RoomTypes)),
		Amenities: append([]int{}, amenities...),
		Locations: make([]string, 0, len(locations)),
		SortValues: []string{
			string(domainhostels.SortNewest),
			string(domainhostels.SortPriceAsc),
			string(domainhostels.SortPriceDesc),
			string(domainhostels.SortRating),
			string(domainhostels.SortRelevance),
		},
	}
	for _, rt := range domainhostels.RoomTypes {
		opts.RoomTypes = append(opts.RoomTypes, string(rt))
	}
	for _, loc := range locations {
		opts.Locations = append(opts.Locations, loc.Location)
	}
	if stats.Count > 0 {
		opts.MinPrice = float64(stats.Min) / 100
		opts.MaxPrice = float64(stats.Max) / 100
	}
	return opts, nil
}

var (
	_ queries.HandlerFunc[SuggestionsQuery, []string]                 = (*DiscoveryHandler)(nil).Suggestions
	_ queries.HandlerFunc[PopularLocationsQuery, []dto.LocationCount] = (*DiscoveryHandler)(nil).PopularLocations
	_ queries.HandlerFunc[PriceRangesQuery, dto.PriceRanges]          = (*DiscoveryHandler)(nil).PriceRanges
	_ queries.HandlerFunc[FilterOptionsQuery, dto.FilterOptions]      = (*DiscoveryHandler)(nil).FilterOptions
)
