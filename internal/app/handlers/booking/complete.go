package booking

import (
	"context"
	"log/slog"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	"hostelhunt/internal/domain/shared/daterange"
)

const completeStaysKey = "booking.complete_stays"

// CompleteStaysCommand completes every confirmed booking whose check-out day has been reached.
type CompleteStaysCommand struct {
	Today time.Time
}

func (c CompleteStaysCommand) Key() string { return completeStaysKey }

type CompleteStaysHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CompleteStaysHandler) Handle(ctx context.Context, cmd CompleteStaysCommand) (int, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return 0, err
	}
	defer unit.Release(ctx)

	today := daterange.Day(support.Now(cmd.Today))
	due, err := unit.Bookings().ListByDate(ctx, domainbooking.DateQuery{
		Status:     domainbooking.StatusConfirmed,
		Field:      domainbooking.FieldCheckOut,
		Day:        today,
		OnOrBefore: true,
	})
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range due {
		changed, err := b.Complete(today)
		if err != nil {
			return 0, err
		}
		if !changed {
			continue
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return 0, err
		}
		if err := support.RecordEvents(ctx, unit, h.Encoder, b); err != nil {
			return 0, err
		}
		completed++
	}
	if err := unit.Commit(ctx); err != nil {
		return 0, err
	}
	if h.Logger != nil && completed > 0 {
		h.Logger.Info("stays completed", "count", completed, "day", today.Format(daterange.Layout))
	}
	return completed, nil
}

var _ commands.Handler[CompleteStaysCommand, int] = (*CompleteStaysHandler)(nil)
