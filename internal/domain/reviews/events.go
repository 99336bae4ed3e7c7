package reviews

import (
	"time"

	"hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/user"
)

type Submitted struct {
	ReviewID ID         `json:"review_id"`
	UserID   user.ID    `json:"user_id"`
	HostelID hostels.ID `json:"hostel_id"`
	Rating   int        `json:"rating"`
	At       time.Time  `json:"at"`
}

func (e Submitted) EventName() string     { return "review.submitted" }
func (e Submitted) AggregateID() string   { return string(e.ReviewID) }
func (e Submitted) OccurredAt() time.Time { return e.At }

type Updated struct {
	ReviewID ID         `json:"review_id"`
	HostelID hostels.ID `json:"hostel_id"`
	Rating   int        `json:"rating"`
	At       time.Time  `json:"at"`
}

func (e Updated) EventName() string     { return "review.updated" }
func (e Updated) AggregateID() string   { return string(e.ReviewID) }
func (e Updated) OccurredAt() time.Time { return e.At }

type Deleted struct {
	ReviewID ID         `json:"review_id"`
	HostelID hostels.ID `json:"hostel_id"`
	At       time.Time  `json:"at"`
}

func (e Deleted) EventName() string     { return "review.deleted" }
func (e Deleted) AggregateID() string   { return string(e.ReviewID) }
func (e Deleted) OccurredAt() time.Time { return e.At }
