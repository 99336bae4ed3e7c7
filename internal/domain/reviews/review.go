package reviews

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/events"
	"hostelhunt/internal/domain/user"
)

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrCommentTooLong  = errors.New("reviews: comment must be at most 1000 characters")
	ErrNotFound        = errors.New("reviews: not found")
	ErrNotEligible     = errors.New("reviews: a completed stay at this hostel is required")
	ErrAlreadyReviewed = errors.New("reviews: hostel already reviewed by this user")
	ErrNotAuthor       = errors.New("reviews: only the author may change this review")
)

const maxCommentLen = 1000

type ID string

type Review struct {
	ID        ID
	UserID    user.ID
	HostelID  hostels.ID
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Review, error)
	ByUserAndHostel(ctx context.Context, userID user.ID, hostelID hostels.ID) (*Review, error)
	Save(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id ID) error
	// ListByHostel returns newest first.
	ListByHostel(ctx context.Context, hostelID hostels.ID, limit, offset int) ([]*Review, int, error)
	ListByUser(ctx context.Context, userID user.ID) ([]*Review, error)
	SummaryByHostels(ctx context.Context, hostelIDs []hostels.ID) (Summary, error)
	SummaryAll(ctx context.Context) (Summary, error)
}

type CreateParams struct {
	ID       ID
	UserID   user.ID
	HostelID hostels.ID
	Rating   int
	Comment  string
	Now      time.Time
}

func New(params CreateParams) (*Review, error) {
	if err := ValidateRating(params.Rating); err != nil {
		return nil, err
	}
	comment, err := normalizeComment(params.Comment)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	review := &Review{
		ID:        params.ID,
		UserID:    params.UserID,
		HostelID:  params.HostelID,
		Rating:    params.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	review.Record(Submitted{ReviewID: review.ID, UserID: review.UserID, HostelID: review.HostelID, Rating: review.Rating, At: now})
	return review, nil
}

// Update edits rating and/or comment; nil leaves the field unchanged.
func (r *Review) Update(rating *int, comment *string, now time.Time) error {
	next := *r
	if rating != nil {
		if err := ValidateRating(*rating); err != nil {
			return err
		}
		next.Rating = *rating
	}
	if comment != nil {
		value, err := normalizeComment(*comment)
		if err != nil {
			return err
		}
		next.Comment = value
	}
	r.Rating = next.Rating
	r.Comment = next.Comment
	r.UpdatedAt = now.UTC()
	r.Record(Updated{ReviewID: r.ID, HostelID: r.HostelID, Rating: r.Rating, At: r.UpdatedAt})
	return nil
}

// MarkDeleted records the removal; the repository performs the delete.
func (r *Review) MarkDeleted(now time.Time) {
	r.Record(Deleted{ReviewID: r.ID, HostelID: r.HostelID, At: now.UTC()})
}

func (r *Review) EnsureAuthor(userID user.ID) error {
	if r.UserID != userID {
		return ErrNotAuthor
	}
	return nil
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

func normalizeComment(raw string) (string, error) {
	comment := strings.TrimSpace(raw)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return "", ErrCommentTooLong
	}
	return comment, nil
}

// Summary aggregates ratings over a scope.
type Summary struct {
	Count        int
	Sum          int
	Distribution [5]int
}

func (s *Summary) Add(rating int) {
	if ValidateRating(rating) != nil {
		return
	}
	s.Count++
	s.Sum += rating
	s.Distribution[rating-1]++
}

// Average is rounded to two decimals; zero when empty.
func (s Summary) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return math.Round(float64(s.Sum)/float64(s.Count)*100) / 100
}

// Summarize folds reviews into a Summary.
func Summarize(items []*Review) Summary {
	var s Summary
	for _, r := range items {
		s.Add(r.Rating)
	}
	return s
}
