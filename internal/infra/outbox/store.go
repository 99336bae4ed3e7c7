package outbox

import (
	"context"
	"time"
)

// Pending is a committed record claimed for delivery.
type Pending struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store persists outbox records between commit and delivery. Claim returns nil
// when nothing is due.
type Store interface {
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
