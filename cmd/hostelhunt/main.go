package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bookingapp "hostelhunt/internal/app/handlers/booking"
	"hostelhunt/internal/app/notifications"
	authsvc "hostelhunt/internal/app/services/auth"
	"hostelhunt/internal/app/wiring"
	"hostelhunt/internal/infra/bootstrap"
	"hostelhunt/internal/infra/broker/kafka"
	"hostelhunt/internal/infra/config"
	ginserver "hostelhunt/internal/infra/http/gin"
	"hostelhunt/internal/infra/obs"
	infraoutbox "hostelhunt/internal/infra/outbox"
	"hostelhunt/internal/infra/security"
)

// eventGroups are the aggregates whose topics the notification consumer follows.
var eventGroups = []string{"user", "hostel", "booking", "payment", "review"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("backends unavailable", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := infra.Close(closeCtx); err != nil {
			logger.Warn("closing backends failed", "error", err)
		}
	}()

	app, err := buildApplication(cfg, infra, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	if path := fixturesPath(); path != "" {
		if err := loadHostelFixtures(ctx, infra.UoWFactory, path, logger); err != nil {
			logger.Warn("hostel fixtures load failed", "error", err, "path", path)
		}
	}

	go func() {
		if err := app.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()
	if app.consumer != nil {
		go func() {
			topics := make([]string, 0, len(eventGroups))
			for _, group := range eventGroups {
				topics = append(topics, infraoutbox.TopicFor(cfg.KafkaTopicPrefix, group+"."))
			}
			if err := app.consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks: infra.Checks,
		Logger: logger,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close()
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	relay    *infraoutbox.Worker
	consumer *kafka.Consumer
	producer *kafka.Producer
}

func buildApplication(cfg config.Config, infra *bootstrap.Infra, logger *slog.Logger) (*application, error) {
	signer, err := security.NewJWT(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	notifier := bootstrap.Notifier(cfg, logger)
	relay := &infraoutbox.Worker{
		Store:       infra.Relay,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}

	auth := &authsvc.Service{
		UoWFactory: infra.UoWFactory,
		Flusher:    relay,
		Sessions:   infra.Sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     signer,
		SessionIDs: security.SessionIDGenerator{},
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Logger:     logger,
	}
	buses := wiring.Build(wiring.Deps{
		UoWFactory:  infra.UoWFactory,
		Flusher:     relay,
		Idempotency: infra.Idempotency,
		Sessions:    infra.Sessions,
		Gateway:     bootstrap.Gateway(cfg, logger),
		Uploader:    infra.Uploader(cfg, logger),
		Notifier:    notifier,
		Booking: bookingapp.Policy{
			PaymentRequired: cfg.RequirePayment,
			EnforceCapacity: cfg.BookingOverlapPolicy == config.OverlapCapacity,
		},
		Logger: logger,
	})

	dispatcher := &notifications.Dispatcher{
		UoWFactory: infra.UoWFactory,
		Notifier:   notifier,
		Inbox:      infra.Inbox,
		Tokens:     auth,
		Logger:     logger,
	}
	deliver := func(ctx context.Context, env infraoutbox.Envelope) error {
		return dispatcher.Handle(ctx, notifications.Event{ID: env.ID, Name: env.EventName(), Data: env.Data})
	}

	app := &application{relay: relay}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.EnvelopeHandler{Deliver: deliver}, logger)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		consumer.Backoff = cfg.RetryBackoff
		relay.Producer = producer
		app.producer, app.consumer = producer, consumer
		logger.Info("kafka relay enabled", "brokers", cfg.KafkaBrokers)
	} else {
		relay.Producer = infraoutbox.LocalProducer{Deliver: deliver}
	}

	app.handlers = ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: auth, Queries: buses.Queries, Logger: logger},
		Users:          ginserver.UsersHandler{Commands: buses.Commands, Queries: buses.Queries, Auth: auth, Logger: logger},
		Landlords:      ginserver.LandlordsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Hostels:        ginserver.HostelsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Search:         ginserver.SearchHandler{Queries: buses.Queries, Logger: logger},
		Bookings:       ginserver.BookingsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Reviews:        ginserver.ReviewsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Payments:       ginserver.PaymentsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: auth, Logger: logger}.Handle,
	}
	return app, nil
}

func (a *application) close() {
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
