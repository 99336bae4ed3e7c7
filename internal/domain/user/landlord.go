package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrLandlordNotFound     = errors.New("landlord: not found")
	ErrLandlordExists       = errors.New("landlord: profile already exists")
	ErrBusinessNameRequired = errors.New("landlord: business name must be 2..200 characters")
	ErrLandlordRoleRequired = errors.New("landlord: owning user must have the landlord role")
	ErrLandlordOwnsHostels  = errors.New("landlord: profile still owns hostels")
)

type LandlordID string

type Landlord struct {
	ID           LandlordID
	UserID       ID
	BusinessName string
	ContactPhone string
	ContactEmail string
	Address      string
	Description  string
	Rating       float64
	ReviewCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LandlordRepository interface {
	ByID(ctx context.Context, id LandlordID) (*Landlord, error)
	ByUserID(ctx context.Context, userID ID) (*Landlord, error)
	Save(ctx context.Context, landlord *Landlord) error
	Delete(ctx context.Context, id LandlordID) error
}

type LandlordParams struct {
	ID           LandlordID
	Owner        *User
	BusinessName string
	ContactPhone string
	ContactEmail string
	Address      string
	Description  string
	CreatedAt    time.Time
}

// NewLandlord creates the landlord profile of a user already holding the landlord role.
func NewLandlord(params LandlordParams) (*Landlord, error) {
	if params.Owner == nil || params.Owner.Role != RoleLandlord {
		return nil, ErrLandlordRoleRequired
	}
	name, err := normalizeBusinessName(params.BusinessName)
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	return &Landlord{
		ID:           params.ID,
		UserID:       params.Owner.ID,
		BusinessName: name,
		ContactPhone: strings.TrimSpace(params.ContactPhone),
		ContactEmail: NormalizeEmail(params.ContactEmail),
		Address:      strings.TrimSpace(params.Address),
		Description:  strings.TrimSpace(params.Description),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type LandlordUpdate struct {
	BusinessName *string
	ContactPhone *string
	ContactEmail *string
	Address      *string
	Description  *string
}

func (l *Landlord) Update(update LandlordUpdate, now time.Time) error {
	if update.BusinessName != nil {
		name, err := normalizeBusinessName(*update.BusinessName)
		if err != nil {
			return err
		}
		l.BusinessName = name
	}
	if update.ContactPhone != nil {
		l.ContactPhone = strings.TrimSpace(*update.ContactPhone)
	}
	if update.ContactEmail != nil {
		l.ContactEmail = NormalizeEmail(*update.ContactEmail)
	}
	if update.Address != nil {
		l.Address = strings.TrimSpace(*update.Address)
	}
	if update.Description != nil {
		l.Description = strings.TrimSpace(*update.Description)
	}
	l.UpdatedAt = now.UTC()
	return nil
}

// UpdateRating stores the aggregate computed over every hostel of the landlord.
func (l *Landlord) UpdateRating(average float64, count int, now time.Time) {
	l.Rating = average
	l.ReviewCount = count
	l.UpdatedAt = now.UTC()
}

// NotificationEmail prefers the business contact address over the account address.
func (l *Landlord) NotificationEmail(owner *User) string {
	if l.ContactEmail != "" {
		return l.ContactEmail
	}
	if owner != nil {
		return owner.Email
	}
	return ""
}

// DisplayName is the business name, or the owner's name when empty.
func (l *Landlord) DisplayName(owner *User) string {
	if l.BusinessName != "" {
		return l.BusinessName
	}
	if owner != nil {
		return owner.Name
	}
	return ""
}

func normalizeBusinessName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 2 || n > 200 {
		return "", ErrBusinessNameRequired
	}
	return name, nil
}
