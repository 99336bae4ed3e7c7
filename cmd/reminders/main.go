// Command reminders completes finished stays and sends the daily check-in,
// check-out and review emails. It is meant to run once a day from cron.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/notifications"
	"hostelhunt/internal/app/wiring"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/bootstrap"
	"hostelhunt/internal/infra/broker/kafka"
	"hostelhunt/internal/infra/config"
	"hostelhunt/internal/infra/obs"
	infraoutbox "hostelhunt/internal/infra/outbox"
)

func main() {
	dateFlag := flag.String("date", "", "run as if today were this date (YYYY-MM-DD)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(os.Getenv("APP_ENV"))
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var today time.Time
	if *dateFlag != "" {
		today, err = time.Parse(time.DateOnly, *dateFlag)
		if err != nil {
			logger.Error("invalid -date", "value", *dateFlag, "error", err)
			os.Exit(2)
		}
	}

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("backends unavailable", "error", err)
		os.Exit(1)
	}
	defer infra.Close(context.Background())

	buses := wiring.Build(wiring.Deps{
		UoWFactory:  infra.UoWFactory,
		Idempotency: infra.Idempotency,
		Sessions:    infra.Sessions,
		Notifier:    bootstrap.Notifier(cfg, logger),
		Logger:      logger,
	})

	report, err := commands.Dispatch[notifications.RunRemindersCommand, dto.ReminderReport](ctx, buses.Commands, notifications.RunRemindersCommand{
		Actor: support.Actor{ID: "system", Role: domainuser.RoleAdmin},
		Today: today,
	})
	if err != nil {
		logger.Error("reminder sweep failed", "error", err)
		os.Exit(1)
	}
	logger.Info("reminder sweep finished",
		"completed", report.Completed,
		"check_in", report.CheckInReminders,
		"check_out", report.CheckOutReminders,
		"review_nudges", report.ReviewNudges,
	)

	// Completed stays leave booking events behind. With a broker configured
	// they are published now, otherwise the server relay picks them up.
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka unavailable; events left in outbox", "error", err)
			return
		}
		defer producer.Close()
		relay := &infraoutbox.Worker{
			Store:       infra.Relay,
			Producer:    producer,
			Logger:      logger,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		if err := relay.Drain(ctx); err != nil {
			logger.Warn("outbox drain failed", "error", err)
		}
	}
}
