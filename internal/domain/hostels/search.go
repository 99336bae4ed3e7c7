package hostels

import (
	"math"
	"sort"
	"strings"

	"hostelhunt/internal/domain/user"
)

// Sort defines a supported ordering.
type Sort string

const (
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortRating    Sort = "rating"
	SortNewest    Sort = "newest"
	SortRelevance Sort = "relevance"

	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = math.MaxInt32 / MaxPerPage
)

// GeoFilter restricts results to a radius around a point.
type GeoFilter struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// SearchParams describe listing filters and paging options. Prices are in minor units;
// MaxPrice of zero means no upper bound.
type SearchParams struct {
	LandlordID   user.LandlordID
	Location     string
	Query        string
	MinPrice     int64
	MaxPrice     int64
	RoomTypes    []RoomType
	MinCapacity  int
	Amenities    []int
	Furnished    *bool
	VerifiedOnly bool
	FeaturedOnly bool
	Near         *GeoFilter
	Sort         Sort
	Page         int
	PerPage      int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.Location = strings.ToLower(strings.TrimSpace(n.Location))
	n.Query = strings.ToLower(strings.TrimSpace(n.Query))
	if n.MinPrice < 0 {
		n.MinPrice = 0
	}
	if n.MaxPrice < 0 || (n.MaxPrice > 0 && n.MaxPrice < n.MinPrice) {
		n.MaxPrice = 0
	}
	if n.MinCapacity < 0 {
		n.MinCapacity = 0
	}
	n.RoomTypes = normalizeRoomTypes(n.RoomTypes)
	n.Amenities = normalizeAmenities(n.Amenities)
	if len(n.Amenities) == 0 {
		n.Amenities = nil
	}
	if n.Near != nil && n.Near.RadiusKm <= 0 {
		n.Near = nil
	}
	switch n.Sort {
	case SortPriceAsc, SortPriceDesc, SortRating, SortNewest, SortRelevance:
	default:
		n.Sort = SortNewest
	}
	if n.Page < 1 {
		n.Page = 1
	}
	if n.Page > MaxPage {
		n.Page = MaxPage
	}
	if n.PerPage <= 0 {
		n.PerPage = DefaultPerPage
	}
	if n.PerPage > MaxPerPage {
		n.PerPage = MaxPerPage
	}
	return n
}

// Offset is the zero-based index of the first item on the page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Matches evaluates every filter of normalized params against a hostel.
func (p SearchParams) Matches(h *Hostel) bool {
	if p.LandlordID != "" && h.LandlordID != p.LandlordID {
		return false
	}
	if p.Location != "" && !containsFold(h.Location, p.Location) && !containsFold(h.Name, p.Location) {
		return false
	}
	if p.Query != "" && RelevanceScore(h, p.Query) == 0 {
		return false
	}
	if p.MinPrice > 0 && h.Price.Amount < p.MinPrice {
		return false
	}
	if p.MaxPrice > 0 && h.Price.Amount > p.MaxPrice {
		return false
	}
	if len(p.RoomTypes) > 0 && !roomTypeIncluded(h.RoomType, p.RoomTypes) {
		return false
	}
	if p.MinCapacity > 0 && h.Capacity < p.MinCapacity {
		return false
	}
	if !h.HasAmenities(p.Amenities) {
		return false
	}
	if p.Furnished != nil && h.Furnished() != *p.Furnished {
		return false
	}
	if p.VerifiedOnly && !h.Verified {
		return false
	}
	if p.FeaturedOnly && !h.Featured {
		return false
	}
	if p.Near != nil {
		if h.Coordinates == nil {
			return false
		}
		if DistanceKm(p.Near.Lat, p.Near.Lng, h.Coordinates.Lat, h.Coordinates.Lng) > p.Near.RadiusKm {
			return false
		}
	}
	return true
}

// SortHostels orders items in place; ties always fall back to newest first, then id.
func SortHostels(items []*Hostel, params SearchParams) {
	newer := func(a, b *Hostel) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch params.Sort {
		case SortPriceAsc:
			if a.Price.Amount != b.Price.Amount {
				return a.Price.Amount < b.Price.Amount
			}
		case SortPriceDesc:
			if a.Price.Amount != b.Price.Amount {
				return a.Price.Amount > b.Price.Amount
			}
		case SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		case SortRelevance:
			if params.Query != "" {
				sa, sb := RelevanceScore(a, params.Query), RelevanceScore(b, params.Query)
				if sa != sb {
					return sa > sb
				}
			}
		}
		return newer(a, b)
	})
}

// RelevanceScore ranks a free-text match: name 3, location 2, description 1.
func RelevanceScore(h *Hostel, query string) int {
	switch {
	case query == "":
		return 0
	case containsFold(h.Name, query):
		return 3
	case containsFold(h.Location, query):
		return 2
	case containsFold(h.Description, query):
		return 1
	default:
		return 0
	}
}

const earthRadiusKm = 6371.0

// DistanceKm is the haversine distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// SearchResult wraps a page of hits with the total of the filtered set.
type SearchResult struct {
	Items []*Hostel
	Total int
}

// Pages returns the page count for perPage.
func (r SearchResult) Pages(perPage int) int {
	if perPage <= 0 || r.Total == 0 {
		return 0
	}
	return (r.Total + perPage - 1) / perPage
}

// Paginate slices an already filtered and sorted set; a page past the end is empty.
func Paginate(items []*Hostel, params SearchParams) SearchResult {
	total := len(items)
	start := params.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + params.PerPage
	if end > total {
		end = total
	}
	return SearchResult{Items: items[start:end], Total: total}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func roomTypeIncluded(rt RoomType, set []RoomType) bool {
	for _, candidate := range set {
		if candidate == rt {
			return true
		}
	}
	return false
}

// normalizeRoomTypes canonicalizes and dedups values. Unknown types are kept
// so that they match nothing rather than lifting the filter.
func normalizeRoomTypes(values []RoomType) []RoomType {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[RoomType]struct{}, len(values))
	out := make([]RoomType, 0, len(values))
	for _, value := range values {
		rt, err := ParseRoomType(string(value))
		if err != nil {
			rt = RoomType(strings.ToLower(strings.TrimSpace(string(value))))
		}
		if _, ok := seen[rt]; ok {
			continue
		}
		seen[rt] = struct{}{}
		out = append(out, rt)
	}
	return out
}
