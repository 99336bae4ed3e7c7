// Package bootstrap opens the storage, session, idempotency and inbox backends
// selected by configuration. The HTTP server and the reminders job share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"hostelhunt/internal/app/middleware"
	"hostelhunt/internal/app/notifications"
	appoutbox "hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainauth "hostelhunt/internal/domain/auth"
	"hostelhunt/internal/infra/config"
	"hostelhunt/internal/infra/db/mongo"
	"hostelhunt/internal/infra/db/postgres"
	"hostelhunt/internal/infra/obs"
	infraoutbox "hostelhunt/internal/infra/outbox"
	"hostelhunt/internal/infra/storage/memory"
	redisstore "hostelhunt/internal/infra/storage/redis"
)

const inboxConsumer = "notifications"

// Infra holds the opened backends. Close releases them in reverse order.
type Infra struct {
	UoWFactory  uow.UoWFactory
	Relay       infraoutbox.Store
	Idempotency middleware.IdempotencyStore
	Inbox       notifications.Inbox
	Sessions    domainauth.SessionStore
	Checks      []obs.Check

	closers []func(context.Context) error
}

// Open connects every configured backend and falls back to process memory for
// the ones left unset.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Infra, error) {
	infra := &Infra{}
	if err := infra.open(ctx, cfg, logger); err != nil {
		infra.Close(context.Background())
		return nil, err
	}
	return infra, nil
}

func (i *Infra) open(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var memOutbox appoutbox.Outbox
	if cfg.MongoURI != "" {
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		i.onClose(client.Close)
		i.Checks = append(i.Checks, obs.Check{Name: "mongo", Probe: client.Ping})
		if i.Idempotency, err = mongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
			return fmt.Errorf("mongo idempotency: %w", err)
		}
		if i.Inbox, err = mongo.NewInbox(ctx, client.DB, inboxConsumer); err != nil {
			return fmt.Errorf("mongo inbox: %w", err)
		}
		if cfg.StorageDriver == config.StorageMemory {
			store, err := mongo.NewOutboxStore(ctx, client.DB)
			if err != nil {
				return fmt.Errorf("mongo outbox: %w", err)
			}
			memOutbox, i.Relay = store, store
		}
		logger.Info("mongo connected", "database", cfg.MongoDB)
	} else {
		i.Idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		i.Inbox = memory.NewInbox()
	}

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		i.onClose(func(context.Context) error { pool.Close(); return nil })
		if err := postgres.ApplySchema(ctx, pool); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		i.Checks = append(i.Checks, obs.Check{Name: "postgres", Probe: pool.Ping})
		i.UoWFactory = postgres.Factory{Pool: pool}
		i.Relay = postgres.OutboxStore{Pool: pool}
		logger.Info("storage ready", "driver", cfg.StorageDriver)
	default:
		if memOutbox == nil {
			store := memory.NewOutboxStore()
			memOutbox, i.Relay = store, store
		}
		i.UoWFactory = memory.Factory{Store: memory.NewStore(), Outbox: memOutbox}
		logger.Warn("storage is in memory; data is lost on restart")
	}

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		i.onClose(func(context.Context) error { return client.Close() })
		store := redisstore.NewSessionStore(client, "")
		if err := store.Probe(ctx); err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		i.Checks = append(i.Checks, obs.Check{Name: "redis", Probe: store.Probe})
		i.Sessions = store
	} else {
		i.Sessions = memory.NewSessionStore()
	}
	return nil
}

// AddCheck registers a readiness probe for a backend opened elsewhere.
func (i *Infra) AddCheck(name string, probe func(context.Context) error) {
	i.Checks = append(i.Checks, obs.Check{Name: name, Probe: probe})
}

func (i *Infra) onClose(fn func(context.Context) error) {
	i.closers = append(i.closers, fn)
}

func (i *Infra) Close(ctx context.Context) error {
	var errs []error
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}
