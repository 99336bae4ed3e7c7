package hostels

import (
	"time"

	"hostelhunt/internal/domain/user"
)

type Created struct {
	HostelID   ID              `json:"hostel_id"`
	LandlordID user.LandlordID `json:"landlord_id"`
	Name       string          `json:"name"`
	At         time.Time       `json:"at"`
}

func (e Created) EventName() string     { return "hostel.created" }
func (e Created) AggregateID() string   { return string(e.HostelID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Updated struct {
	HostelID ID        `json:"hostel_id"`
	At       time.Time `json:"at"`
}

func (e Updated) EventName() string     { return "hostel.updated" }
func (e Updated) AggregateID() string   { return string(e.HostelID) }
func (e Updated) OccurredAt() time.Time { return e.At }

type Verified struct {
	HostelID   ID              `json:"hostel_id"`
	LandlordID user.LandlordID `json:"landlord_id"`
	Name       string          `json:"name"`
	At         time.Time       `json:"at"`
}

func (e Verified) EventName() string     { return "hostel.verified" }
func (e Verified) AggregateID() string   { return string(e.HostelID) }
func (e Verified) OccurredAt() time.Time { return e.At }
