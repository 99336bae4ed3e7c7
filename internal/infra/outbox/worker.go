package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed records from a Store to a Producer. It drains the store
// on every tick and whenever Flush is called.
type Worker struct {
	Store       Store
	Producer    Producer
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration

	once sync.Once
	wake chan struct{}
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.wakeup():
		}
		if err := w.Drain(ctx); err != nil && w.Logger != nil {
			w.Logger.Error("outbox drain failed", "error", err)
		}
	}
}

// Flush asks a running worker to drain now; it never blocks.
func (w *Worker) Flush(context.Context) error {
	select {
	case w.wakeup() <- struct{}{}:
	default:
	}
	return nil
}

// Drain delivers every due record and returns once the store has none left.
func (w *Worker) Drain(ctx context.Context) error {
	workerID := w.workerID()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := w.processOnce(ctx, workerID)
		if err != nil || !more {
			return err
		}
	}
}

func (w *Worker) processOnce(ctx context.Context, workerID string) (bool, error) {
	rec, err := w.Store.Claim(ctx, workerID)
	if err != nil || rec == nil {
		return false, err
	}
	payload, headers, err := w.formatPayload(rec)
	if err != nil {
		return true, w.fail(ctx, rec, err)
	}
	if err := w.Producer.Publish(ctx, TopicFor(w.TopicPrefix, rec.Name), rec.Aggregate, payload, headers); err != nil {
		return true, w.fail(ctx, rec, err)
	}
	return true, w.Store.MarkSent(ctx, rec.ID)
}

func (w *Worker) fail(ctx context.Context, rec *Pending, cause error) error {
	if w.Logger != nil {
		w.Logger.Warn("outbox delivery failed", "event", rec.Name, "id", rec.ID, "attempts", rec.Attempts+1, "error", cause)
	}
	return w.Store.MarkFailed(ctx, rec.ID, w.nextRetry(rec.Attempts), cause.Error())
}

func (w *Worker) formatPayload(rec *Pending) ([]byte, map[string]string, error) {
	if !json.Valid(rec.Payload) {
		return nil, nil, ErrMalformedEnvelope
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              rec.ID,
		Type:            rec.Name + typeSuffix,
		Source:          w.source(),
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            json.RawMessage(rec.Payload),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{ContentTypeKey: ContentType}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) wakeup() chan struct{} {
	w.once.Do(func() { w.wake = make(chan struct{}, 1) })
	return w.wake
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return defaultSource
}
