package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	bookingapp "hostelhunt/internal/app/handlers/booking"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/daterange"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	runRemindersKey = "notifications.reminders.run"

	// reviewNudgeDelay is how many days after check-out a review is requested.
	reviewNudgeDelay = 3
)

// RunRemindersCommand completes finished stays and sends the daily reminder emails.
type RunRemindersCommand struct {
	Actor support.Actor
	Today time.Time
}

func (c RunRemindersCommand) Key() string                     { return runRemindersKey }
func (c RunRemindersCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c RunRemindersCommand) AllowedRoles() []domainuser.Role { return []domainuser.Role{domainuser.RoleAdmin} }
func (c RunRemindersCommand) SelfManagedUnits() bool          { return true }

type RemindersHandler struct {
	UoWFactory uow.UoWFactory
	Completer  commands.Handler[bookingapp.CompleteStaysCommand, int]
	Notifier   *Notifier
	Logger     *slog.Logger
}

func (h *RemindersHandler) Handle(ctx context.Context, cmd RunRemindersCommand) (dto.ReminderReport, error) {
	today := daterange.Day(support.Now(cmd.Today))
	var report dto.ReminderReport
	if h.Completer != nil {
		completed, err := h.Completer.Handle(ctx, bookingapp.CompleteStaysCommand{Today: today})
		if err != nil {
			return report, err
		}
		report.Completed = completed
	}

	checkIns, err := h.due(ctx, domainbooking.DateQuery{
		Status: domainbooking.StatusConfirmed,
		Field:  domainbooking.FieldCheckIn,
		Day:    daterange.AddDays(today, 1),
	}, false)
	if err != nil {
		return report, err
	}
	for _, view := range checkIns {
		if h.Notifier.CheckInReminder(ctx, view.guest, view.booking, view.hostel) {
			report.CheckInReminders++
		}
	}

	checkOuts, err := h.due(ctx, domainbooking.DateQuery{
		Status: domainbooking.StatusConfirmed,
		Field:  domainbooking.FieldCheckOut,
		Day:    today,
	}, false)
	if err != nil {
		return report, err
	}
	for _, view := range checkOuts {
		if h.Notifier.CheckOutReminder(ctx, view.guest, view.booking, view.hostel) {
			report.CheckOutReminders++
		}
	}

	nudges, err := h.due(ctx, domainbooking.DateQuery{
		Status: domainbooking.StatusCompleted,
		Field:  domainbooking.FieldCheckOut,
		Day:    daterange.AddDays(today, -reviewNudgeDelay),
	}, true)
	if err != nil {
		return report, err
	}
	for _, view := range nudges {
		if h.Notifier.ReviewNudge(ctx, view.guest, view.booking, view.hostel) {
			report.ReviewNudges++
		}
	}

	if h.Logger != nil {
		h.Logger.Info("reminders sent",
			"day", today.Format(daterange.Layout),
			"completed", report.Completed,
			"check_in", report.CheckInReminders,
			"check_out", report.CheckOutReminders,
			"review_nudges", report.ReviewNudges,
		)
	}
	return report, nil
}

// due loads the bookings matching query with their hostel and guest. With
// unreviewed set, bookings whose guest already reviewed the hostel are skipped.
func (h *RemindersHandler) due(ctx context.Context, query domainbooking.DateQuery, unreviewed bool) ([]bookingView, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ListByDate(ctx, query)
	if err != nil {
		return nil, err
	}
	views := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		if unreviewed {
			_, err := unit.Reviews().ByUserAndHostel(ctx, b.UserID, b.HostelID)
			if err == nil {
				continue
			}
			if !errors.Is(err, domainreviews.ErrNotFound) {
				return nil, err
			}
		}
		view, err := loadStay(ctx, unit, b)
		if err != nil {
			if permanent(err) {
				continue
			}
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

var _ commands.Handler[RunRemindersCommand, dto.ReminderReport] = (*RemindersHandler)(nil)
