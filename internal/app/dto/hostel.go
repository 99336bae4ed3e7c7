package dto

import (
	"time"

	domainhostels "hostelhunt/internal/domain/hostels"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Hostel struct {
	ID          string          `json:"id"`
	LandlordID  string          `json:"landlord_id"`
	Name        string          `json:"name"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	Currency    string          `json:"currency"`
	Capacity    int             `json:"capacity"`
	RoomType    string          `json:"room_type"`
	Amenities   []int           `json:"amenities"`
	Images      []string        `json:"images"`
	Coordinates *Coordinates    `json:"coordinates,omitempty"`
	Features    map[string]bool `json:"features"`
	IsVerified  bool            `json:"is_verified"`
	IsFeatured  bool            `json:"is_featured"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"review_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func MapHostel(h *domainhostels.Hostel) Hostel {
	if h == nil {
		return Hostel{}
	}
	out := Hostel{
		ID:          string(h.ID),
		LandlordID:  string(h.LandlordID),
		Name:        h.Name,
		Location:    h.Location,
		Description: h.Description,
		Price:       h.Price.Major(),
		Currency:    h.Price.Currency,
		Capacity:    h.Capacity,
		RoomType:    string(h.RoomType),
		Amenities:   append([]int{}, h.Amenities...),
		Images:      append([]string{}, h.Images...),
		Features:    map[string]bool{},
		IsVerified:  h.Verified,
		IsFeatured:  h.Featured,
		Rating:      h.Rating,
		ReviewCount: h.ReviewCount,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
	for k, v := range h.Features {
		out.Features[k] = v
	}
	if h.Coordinates != nil {
		out.Coordinates = &Coordinates{Latitude: h.Coordinates.Lat, Longitude: h.Coordinates.Lng}
	}
	return out
}

func MapHostels(items []*domainhostels.Hostel) []Hostel {
	out := make([]Hostel, 0, len(items))
	for _, h := range items {
		out = append(out, MapHostel(h))
	}
	return out
}

type HostelDetail struct {
	Hostel
	Landlord LandlordSummary `json:"landlord"`
}

type HostelPage struct {
	Hostels     []Hostel `json:"hostels"`
	Total       int      `json:"total"`
	Pages       int      `json:"pages"`
	CurrentPage int      `json:"current_page"`
	PerPage     int      `json:"per_page"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

type PriceRange struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type PriceRanges struct {
	MinPrice float64      `json:"min_price"`
	MaxPrice float64      `json:"max_price"`
	AvgPrice float64      `json:"avg_price"`
	Currency string       `json:"currency"`
	Ranges   []PriceRange `json:"ranges"`
}

type FilterOptions struct {
	RoomTypes  []string `json:"room_types"`
	Amenities  []int    `json:"amenities"`
	MinPrice   float64  `json:"min_price"`
	MaxPrice   float64  `json:"max_price"`
	Locations  []string `json:"locations"`
	SortValues []string `json:"sort_options"`
}
