package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "hostelhunt/internal/app/outbox"
	infraoutbox "hostelhunt/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	attempts  int
	next      time.Time
	claimedBy string
	lastError string
}

// OutboxStore keeps committed records until the relay delivers them.
type OutboxStore struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{now: time.Now}
}

func (s *OutboxStore) Add(_ context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &outboxEntry{record: record, next: s.now().UTC()})
	return nil
}

// Claim hands out the oldest due record not already claimed.
func (s *OutboxStore) Claim(_ context.Context, workerID string) (*infraoutbox.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, entry := range s.entries {
		if entry.claimedBy != "" || entry.next.After(now) {
			continue
		}
		entry.claimedBy = workerID
		rec := entry.record
		return &infraoutbox.Pending{
			ID:         rec.ID,
			Name:       rec.Name,
			Payload:    rec.Payload,
			OccurredAt: rec.OccurredAt,
			Aggregate:  rec.Aggregate,
			Headers:    rec.Headers,
			Attempts:   entry.attempts,
		}, nil
	}
	return nil, nil
}

func (s *OutboxStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if entry.record.ID != id {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return nil
}

func (s *OutboxStore) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.record.ID == id {
			entry.attempts++
			entry.next = next.UTC()
			entry.claimedBy = ""
			entry.lastError = errMsg
		}
	}
	return nil
}

// Pending reports how many records still await delivery.
func (s *OutboxStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
