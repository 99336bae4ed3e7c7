package dto

import (
	"fmt"
	"time"

	domainreviews "hostelhunt/internal/domain/reviews"
)

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	HostelID  string    `json:"hostel_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func MapReview(review *domainreviews.Review) Review {
	if review == nil {
		return Review{}
	}
	return Review{
		ID:        string(review.ID),
		UserID:    string(review.UserID),
		HostelID:  string(review.HostelID),
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}

type ReviewPage struct {
	Reviews       []Review `json:"reviews"`
	Total         int      `json:"total"`
	Pages         int      `json:"pages"`
	CurrentPage   int      `json:"current_page"`
	PerPage       int      `json:"per_page"`
	AverageRating float64  `json:"average_rating"`
}

type ReviewStats struct {
	TotalReviews       int            `json:"total_reviews"`
	AverageRating      float64        `json:"average_rating"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}

func MapReviewStats(s domainreviews.Summary) ReviewStats {
	dist := make(map[string]int, len(s.Distribution))
	for i, n := range s.Distribution {
		dist[fmt.Sprintf("%d_star", i+1)] = n
	}
	return ReviewStats{
		TotalReviews:       s.Count,
		AverageRating:      s.Average(),
		RatingDistribution: dist,
	}
}
