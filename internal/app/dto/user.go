package dto

import (
	"time"

	domainuser "hostelhunt/internal/domain/user"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	ProfileImage  string    `json:"profile_image,omitempty"`
	Role          string    `json:"role"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func MapUser(user *domainuser.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:            string(user.ID),
		Email:         user.Email,
		Name:          user.Name,
		PhoneNumber:   user.PhoneNumber,
		ProfileImage:  user.ProfileImage,
		Role:          string(user.Role),
		IsActive:      user.Active,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type UserPage struct {
	Users       []User `json:"users"`
	Total       int    `json:"total"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
	PerPage     int    `json:"per_page"`
}

type UserStats struct {
	TotalBookings  int     `json:"total_bookings"`
	ActiveBookings int     `json:"active_bookings"`
	TotalReviews   int     `json:"total_reviews"`
	TotalSpent     float64 `json:"total_spent"`
	Currency       string  `json:"currency"`
}

type Landlord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Address      string    `json:"address,omitempty"`
	Description  string    `json:"description,omitempty"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func MapLandlord(l *domainuser.Landlord) Landlord {
	if l == nil {
		return Landlord{}
	}
	return Landlord{
		ID:           string(l.ID),
		UserID:       string(l.UserID),
		BusinessName: l.BusinessName,
		ContactPhone: l.ContactPhone,
		ContactEmail: l.ContactEmail,
		Address:      l.Address,
		Description:  l.Description,
		Rating:       l.Rating,
		ReviewCount:  l.ReviewCount,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// LandlordSummary is the public view embedded in hostel details.
type LandlordSummary struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"business_name"`
	ContactPhone string  `json:"contact_phone,omitempty"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	HostelCount  int     `json:"hostel_count,omitempty"`
}

func MapLandlordSummary(l *domainuser.Landlord, owner *domainuser.User) LandlordSummary {
	if l == nil {
		return LandlordSummary{}
	}
	return LandlordSummary{
		ID:           string(l.ID),
		BusinessName: l.DisplayName(owner),
		ContactPhone: l.ContactPhone,
		Rating:       l.Rating,
		ReviewCount:  l.ReviewCount,
	}
}

type LandlordPublic struct {
	LandlordSummary
	Description string   `json:"description,omitempty"`
	Hostels     []Hostel `json:"hostels"`
}
