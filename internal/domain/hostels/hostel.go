package hostels

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"hostelhunt/internal/domain/shared/events"
	"hostelhunt/internal/domain/shared/money"
	"hostelhunt/internal/domain/user"
)

var (
	ErrNotFound           = errors.New("hostel: not found")
	ErrLandlordRequired   = errors.New("hostel: landlord is required")
	ErrInvalidName        = errors.New("hostel: name must be 2..200 characters")
	ErrInvalidLocation    = errors.New("hostel: location must be 2..200 characters")
	ErrInvalidDescription = errors.New("hostel: description must be 10..2000 characters")
	ErrNegativePrice      = errors.New("hostel: price must be zero or greater")
	ErrCapacityOutOfRange = errors.New("hostel: capacity must be between 1 and 1000")
	ErrInvalidRoomType    = errors.New("hostel: invalid room type")
	ErrTooManyAmenities   = errors.New("hostel: at most 50 amenities allowed")
	ErrTooManyImages      = errors.New("hostel: at most 20 images allowed")
	ErrInvalidImage       = errors.New("hostel: image url must be 1..500 characters")
	ErrInvalidCoordinates = errors.New("hostel: latitude must be within [-90,90] and longitude within [-180,180]")
	ErrNotOwner           = errors.New("hostel: not owned by landlord")
	ErrHasBookings        = errors.New("hostel: bookings reference this hostel")
)

const (
	MinCapacity  = 1
	MaxCapacity  = 1000
	maxAmenities = 50
	maxImages    = 20
	maxImageLen  = 500

	FeatureFurnished = "furnished"
)

type ID string

type RoomType string

const (
	RoomSingle    RoomType = "single"
	RoomDouble    RoomType = "double"
	RoomTriple    RoomType = "triple"
	RoomDormitory RoomType = "dormitory"
	RoomApartment RoomType = "apartment"
)

// RoomTypes lists the supported room types in display order.
var RoomTypes = []RoomType{RoomSingle, RoomDouble, RoomTriple, RoomDormitory, RoomApartment}

func ParseRoomType(raw string) (RoomType, error) {
	value := RoomType(strings.ToLower(strings.TrimSpace(raw)))
	for _, rt := range RoomTypes {
		if rt == value {
			return rt, nil
		}
	}
	return "", ErrInvalidRoomType
}

type Coordinates struct {
	Lat float64
	Lng float64
}

func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

type Hostel struct {
	ID          ID
	LandlordID  user.LandlordID
	Name        string
	Location    string
	Description string
	Price       money.Money
	Capacity    int
	RoomType    RoomType
	Amenities   []int
	Images      []string
	Coordinates *Coordinates
	Features    map[string]bool
	Verified    bool
	Featured    bool
	Rating      float64
	ReviewCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Counts struct {
	Total    int
	Verified int
	Featured int
}

type LocationCount struct {
	Location string
	Count    int
}

type PriceStats struct {
	Count    int
	Min      int64
	Max      int64
	Average  float64
	Currency string
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Hostel, error)
	// ByIDForUpdate loads the hostel and locks it until the unit of work ends.
	ByIDForUpdate(ctx context.Context, id ID) (*Hostel, error)
	Save(ctx context.Context, hostel *Hostel) error
	Delete(ctx context.Context, id ID) error
	ListByLandlord(ctx context.Context, landlordID user.LandlordID) ([]*Hostel, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Counts(ctx context.Context) (Counts, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	PopularLocations(ctx context.Context, limit int) ([]LocationCount, error)
	PriceStats(ctx context.Context) (PriceStats, error)
	AmenityIDs(ctx context.Context) ([]int, error)
}

type CreateParams struct {
	ID          ID
	LandlordID  user.LandlordID
	Name        string
	Location    string
	Description string
	Price       money.Money
	Capacity    int
	RoomType    RoomType
	Amenities   []int
	Images      []string
	Coordinates *Coordinates
	Features    map[string]bool
	Now         time.Time
}

func New(params CreateParams) (*Hostel, error) {
	if strings.TrimSpace(string(params.LandlordID)) == "" {
		return nil, ErrLandlordRequired
	}
	h := &Hostel{
		ID:         params.ID,
		LandlordID: params.LandlordID,
		Features:   map[string]bool{},
	}
	name := params.Name
	location := params.Location
	description := params.Description
	price := params.Price
	capacity := params.Capacity
	roomType := params.RoomType
	err := h.apply(Update{
		Name:        &name,
		Location:    &location,
		Description: &description,
		Price:       &price,
		Capacity:    &capacity,
		RoomType:    &roomType,
		Amenities:   params.Amenities,
		Images:      params.Images,
		Coordinates: params.Coordinates,
		Features:    params.Features,
	})
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	h.Record(Created{HostelID: h.ID, LandlordID: h.LandlordID, Name: h.Name, At: now})
	return h, nil
}

// Update carries optional fields; nil pointers and nil slices/maps mean unchanged.
type Update struct {
	Name        *string
	Location    *string
	Description *string
	Price       *money.Money
	Capacity    *int
	RoomType    *RoomType
	Amenities   []int
	Images      []string
	Coordinates *Coordinates
	Features    map[string]bool
}

// Apply validates and applies an owner edit.
func (h *Hostel) Apply(update Update, now time.Time) error {
	if err := h.apply(update); err != nil {
		return err
	}
	h.UpdatedAt = now.UTC()
	h.Record(Updated{HostelID: h.ID, At: h.UpdatedAt})
	return nil
}

func (h *Hostel) apply(update Update) error {
	next := *h
	if update.Name != nil {
		name, err := boundedText(*update.Name, 2, 200, ErrInvalidName)
		if err != nil {
			return err
		}
		next.Name = name
	}
	if update.Location != nil {
		location, err := boundedText(*update.Location, 2, 200, ErrInvalidLocation)
		if err != nil {
			return err
		}
		next.Location = location
	}
	if update.Description != nil {
		description, err := boundedText(*update.Description, 10, 2000, ErrInvalidDescription)
		if err != nil {
			return err
		}
		next.Description = description
	}
	if update.Price != nil {
		price := *update.Price
		if price.Amount < 0 {
			return ErrNegativePrice
		}
		if price.Currency == "" {
			price.Currency = money.DefaultCurrency
		}
		normalized, err := money.New(price.Amount, price.Currency)
		if err != nil {
			return err
		}
		next.Price = normalized
	}
	if update.Capacity != nil {
		if *update.Capacity < MinCapacity || *update.Capacity > MaxCapacity {
			return ErrCapacityOutOfRange
		}
		next.Capacity = *update.Capacity
	}
	if update.RoomType != nil {
		rt, err := ParseRoomType(string(*update.RoomType))
		if err != nil {
			return err
		}
		next.RoomType = rt
	}
	if update.Amenities != nil {
		if len(update.Amenities) > maxAmenities {
			return ErrTooManyAmenities
		}
		next.Amenities = normalizeAmenities(update.Amenities)
	}
	if update.Images != nil {
		images, err := normalizeImages(update.Images)
		if err != nil {
			return err
		}
		next.Images = images
	}
	if update.Coordinates != nil {
		if err := update.Coordinates.Validate(); err != nil {
			return err
		}
		coords := *update.Coordinates
		next.Coordinates = &coords
	}
	if update.Features != nil {
		features := make(map[string]bool, len(update.Features))
		for k, v := range update.Features {
			key := strings.ToLower(strings.TrimSpace(k))
			if key != "" {
				features[key] = v
			}
		}
		next.Features = features
	}
	*h = next
	return nil
}

func (h *Hostel) SetVerified(verified bool, now time.Time) {
	if h.Verified == verified {
		return
	}
	h.Verified = verified
	h.UpdatedAt = now.UTC()
	if verified {
		h.Record(Verified{HostelID: h.ID, LandlordID: h.LandlordID, Name: h.Name, At: h.UpdatedAt})
	}
}

func (h *Hostel) SetFeatured(featured bool, now time.Time) {
	if h.Featured == featured {
		return
	}
	h.Featured = featured
	h.UpdatedAt = now.UTC()
}

func (h *Hostel) AddImage(url string, now time.Time) error {
	images, err := normalizeImages(append(append([]string(nil), h.Images...), url))
	if err != nil {
		return err
	}
	h.Images = images
	h.UpdatedAt = now.UTC()
	return nil
}

func (h *Hostel) UpdateRating(average float64, count int, now time.Time) {
	h.Rating = average
	h.ReviewCount = count
	h.UpdatedAt = now.UTC()
}

func (h *Hostel) EnsureOwner(landlordID user.LandlordID) error {
	if h.LandlordID != landlordID {
		return ErrNotOwner
	}
	return nil
}

func (h *Hostel) Furnished() bool {
	return h.Features[FeatureFurnished]
}

// HasAmenities reports whether every requested amenity id is offered.
func (h *Hostel) HasAmenities(ids []int) bool {
	if len(ids) == 0 {
		return true
	}
	owned := make(map[int]struct{}, len(h.Amenities))
	for _, id := range h.Amenities {
		owned[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			return false
		}
	}
	return true
}

func boundedText(raw string, min, max int, errInvalid error) (string, error) {
	value := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return "", errInvalid
	}
	return value, nil
}

func normalizeAmenities(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func normalizeImages(images []string) ([]string, error) {
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" || len(img) > maxImageLen {
			return nil, ErrInvalidImage
		}
		out = append(out, img)
	}
	if len(out) > maxImages {
		return nil, ErrTooManyImages
	}
	return out, nil
}
