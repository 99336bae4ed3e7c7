package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hostelhunt/internal/app/commands"
)

// Replayable commands accept a client retry key (the Idempotency-Key
// header). ReplayKey returns the owner the key is scoped to and the key
// itself; ReplayTarget returns a pointer the stored result decodes into and
// must match the handler's result type.
type Replayable interface {
	commands.Command
	ReplayKey() (owner, key string)
	ReplayTarget() any
}

// IdempotencyRecord is the stored outcome of a succeeded command.
type IdempotencyRecord struct {
	Key      string
	Command  string
	Payload  []byte
	StoredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

var errNoReplayTarget = errors.New("middleware: replayable command has no result target")

// Idempotency answers a repeated key with the result stored for it. Only
// successful outcomes are stored, so a request that failed (a gateway
// timeout during an STK push, a full hostel) may be retried with the same key.
func Idempotency(store IdempotencyStore) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			rc, ok := cmd.(Replayable)
			if !ok {
				return next.Dispatch(ctx, cmd)
			}
			owner, key := rc.ReplayKey()
			if key == "" {
				return next.Dispatch(ctx, cmd)
			}
			scoped := replayScope(cmd.Key(), owner, key)

			rec, found, err := store.Get(ctx, scoped)
			if err != nil {
				return nil, err
			}
			if found {
				return decodeReplay(rc, rec)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("middleware: encode %s result: %w", cmd.Key(), err)
			}
			err = store.Save(ctx, IdempotencyRecord{
				Key:      scoped,
				Command:  cmd.Key(),
				Payload:  payload,
				StoredAt: time.Now().UTC(),
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replayScope(command, owner, key string) string {
	return command + "/" + owner + "/" + key
}

func decodeReplay(rc Replayable, rec IdempotencyRecord) (any, error) {
	target := rc.ReplayTarget()
	if target == nil {
		return nil, errNoReplayTarget
	}
	if err := json.Unmarshal(rec.Payload, target); err != nil {
		return nil, fmt.Errorf("middleware: decode stored %s result: %w", rec.Command, err)
	}
	return target, nil
}
