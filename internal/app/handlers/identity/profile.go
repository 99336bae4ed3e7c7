package identity

import (
	"context"
	"log/slog"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	getProfileKey    = "identity.profile.get"
	updateProfileKey = "identity.profile.update"
	userStatsKey     = "identity.profile.stats"
)

type GetProfileQuery struct {
	UserID domainuser.ID `validate:"required"`
}

func (q GetProfileQuery) Key() string { return getProfileKey }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (dto.User, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.User{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	user, err := unit.Users().ByID(ctx, q.UserID)
	if err != nil {
		return dto.User{}, err
	}
	return dto.MapUser(user), nil
}

// UpdateProfileCommand edits the caller's own profile; nil fields are left unchanged.
type UpdateProfileCommand struct {
	Actor        support.Actor
	Name         *string `validate:"omitempty,max=100"`
	PhoneNumber  *string `validate:"omitempty,max=20"`
	ProfileImage *string `validate:"omitempty,max=500"`
	Now          time.Time
}

func (c UpdateProfileCommand) Key() string { return updateProfileKey }

type UpdateProfileHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (dto.User, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.User{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	user, err := unit.Users().ByID(ctx, cmd.Actor.ID)
	if err != nil {
		return dto.User{}, err
	}
	user.UpdateProfile(domainuser.ProfileUpdate{
		Name:         cmd.Name,
		PhoneNumber:  cmd.PhoneNumber,
		ProfileImage: cmd.ProfileImage,
	}, now)
	if err := unit.Users().Save(ctx, user); err != nil {
		return dto.User{}, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, user); err != nil {
		return dto.User{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.User{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("profile updated", "user_id", user.ID)
	}
	return dto.MapUser(user), nil
}

type UserStatsQuery struct {
	UserID domainuser.ID `validate:"required"`
}

func (q UserStatsQuery) Key() string { return userStatsKey }

type UserStatsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UserStatsHandler) Handle(ctx context.Context, q UserStatsQuery) (dto.UserStats, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	stats, err := unit.Bookings().Stats(ctx, domainbooking.StatsFilter{UserID: q.UserID})
	if err != nil {
		return dto.UserStats{}, err
	}
	reviews, err := unit.Reviews().ListByUser(ctx, q.UserID)
	if err != nil {
		return dto.UserStats{}, err
	}
	return dto.UserStats{
		TotalBookings:  stats.Total,
		ActiveBookings: stats.ByStatus[domainbooking.StatusConfirmed],
		TotalReviews:   len(reviews),
		TotalSpent:     float64(stats.Revenue) / 100,
		Currency:       stats.Currency,
	}, nil
}

var (
	_ queries.Handler[GetProfileQuery, dto.User]       = (*GetProfileHandler)(nil)
	_ commands.Handler[UpdateProfileCommand, dto.User] = (*UpdateProfileHandler)(nil)
	_ queries.Handler[UserStatsQuery, dto.UserStats]   = (*UserStatsHandler)(nil)
)
