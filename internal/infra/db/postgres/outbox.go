package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "hostelhunt/internal/app/outbox"
	infraoutbox "hostelhunt/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"

	// claimTimeout releases records held by a worker that died mid-delivery.
	claimTimeout = 2 * time.Minute
)

// txOutbox writes records inside the unit's transaction.
type txOutbox struct{ q querier }

func (o txOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	return insertEvent(ctx, o.q, record)
}

func insertEvent(ctx context.Context, q querier, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	headers := record.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO outbox_events (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, record.ID, record.Name, record.Payload, utc(record.OccurredAt), record.Aggregate, headers, stateNew, now)
	return err
}

// OutboxStore serves committed records to the relay. Concurrent workers never
// claim the same row.
type OutboxStore struct {
	Pool *pgxpool.Pool
}

func (s OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	return insertEvent(ctx, s.Pool, record)
}

func (s OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	now := time.Now().UTC()
	row := s.Pool.QueryRow(ctx, `
		UPDATE outbox_events SET state = $1, claimed_by = $2, claimed_at = $3
		WHERE id = (
			SELECT id FROM outbox_events
			WHERE (state IN ($4, $5) AND next_attempt_at <= $3)
				OR (state = $1 AND claimed_at <= $6)
			ORDER BY next_attempt_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts
	`, stateClaimed, workerID, now, stateNew, stateFailed, now.Add(-claimTimeout))
	var rec infraoutbox.Pending
	err := row.Scan(&rec.ID, &rec.Name, &rec.Payload, &rec.OccurredAt, &rec.Aggregate, &rec.Headers, &rec.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.OccurredAt = utc(rec.OccurredAt)
	return &rec, nil
}

func (s OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE outbox_events SET state = $1, sent_at = $2 WHERE id = $3`, stateSent, time.Now().UTC(), id)
	return err
}

func (s OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE outbox_events
		SET state = $1, next_attempt_at = $2, last_error = $3, attempts = attempts + 1, claimed_by = NULL
		WHERE id = $4
	`, stateFailed, next.UTC(), errMsg, id)
	return err
}

var (
	_ appoutbox.Outbox  = txOutbox{}
	_ appoutbox.Outbox  = OutboxStore{}
	_ infraoutbox.Store = OutboxStore{}
)
