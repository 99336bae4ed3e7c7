package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainauth "hostelhunt/internal/domain/auth"
	domainbooking "hostelhunt/internal/domain/booking"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	listUsersKey     = "identity.admin.list_users"
	changeRoleKey    = "identity.admin.change_role"
	setActiveKey     = "identity.admin.set_active"
	platformStatsKey = "identity.admin.platform_stats"
)

var adminOnly = []domainuser.Role{domainuser.RoleAdmin}

type ListUsersQuery struct {
	Actor         support.Actor
	Role          domainuser.Role `validate:"omitempty,oneof=student landlord admin"`
	Active        *bool
	EmailVerified *bool
	Query         string `validate:"max=100"`
	Page          int    `validate:"gte=0"`
	PerPage       int    `validate:"gte=0"`
}

func (q ListUsersQuery) Key() string                     { return listUsersKey }
func (q ListUsersQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q ListUsersQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type ListUsersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (dto.UserPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	paging := dto.NewPaging(q.Page, q.PerPage)
	items, total, err := unit.Users().List(ctx, domainuser.ListParams{
		Role:          q.Role,
		Active:        q.Active,
		EmailVerified: q.EmailVerified,
		Query:         q.Query,
		Limit:         paging.PerPage,
		Offset:        paging.Offset(),
	})
	if err != nil {
		return dto.UserPage{}, err
	}
	users := make([]dto.User, 0, len(items))
	for _, u := range items {
		users = append(users, dto.MapUser(u))
	}
	return dto.UserPage{
		Users:       users,
		Total:       total,
		Pages:       paging.Pages(total),
		CurrentPage: paging.Page,
		PerPage:     paging.PerPage,
	}, nil
}

// ChangeRoleCommand is the administrative role change. Demoting a landlord
// removes the landlord profile, which is refused while it still owns hostels.
type ChangeRoleCommand struct {
	Actor  support.Actor
	UserID domainuser.ID   `validate:"required"`
	Role   domainuser.Role `validate:"required,oneof=student landlord admin"`
	Now    time.Time
}

func (c ChangeRoleCommand) Key() string                     { return changeRoleKey }
func (c ChangeRoleCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c ChangeRoleCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type ChangeRoleHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ChangeRoleHandler) Handle(ctx context.Context, cmd ChangeRoleCommand) (dto.User, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.User{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	user, err := unit.Users().ByID(ctx, cmd.UserID)
	if err != nil {
		return dto.User{}, err
	}
	role, err := domainuser.ParseRole(string(cmd.Role))
	if err != nil {
		return dto.User{}, err
	}
	if user.Role == domainuser.RoleLandlord && role != domainuser.RoleLandlord {
		if err := dropLandlordProfile(ctx, unit, user.ID); err != nil {
			return dto.User{}, err
		}
	}
	from := user.Role
	if err := user.ChangeRole(role, now); err != nil {
		return dto.User{}, err
	}
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
		h.Logger.Info("user role changed", "user_id", user.ID, "from", from, "to", user.Role, "by", cmd.Actor.ID)
	}
	return dto.MapUser(user), nil
}

func dropLandlordProfile(ctx context.Context, unit uow.UnitOfWork, userID domainuser.ID) error {
	landlord, err := unit.Landlords().ByUserID(ctx, userID)
	if errors.Is(err, domainuser.ErrLandlordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	owned, err := unit.Hostels().ListByLandlord(ctx, landlord.ID)
	if err != nil {
		return err
	}
	if len(owned) > 0 {
		return domainuser.ErrLandlordOwnsHostels
	}
	return unit.Landlords().Delete(ctx, landlord.ID)
}

// SetUserActiveCommand activates or soft-deactivates an account. Deactivation revokes every session.
type SetUserActiveCommand struct {
	Actor  support.Actor
	UserID domainuser.ID `validate:"required"`
	Active bool
	Now    time.Time
}

func (c SetUserActiveCommand) Key() string                     { return setActiveKey }
func (c SetUserActiveCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c SetUserActiveCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type SetUserActiveHandler struct {
	UoWFactory uow.UoWFactory
	Sessions   domainauth.SessionStore
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *SetUserActiveHandler) Handle(ctx context.Context, cmd SetUserActiveCommand) (dto.User, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.User{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	user, err := unit.Users().ByID(ctx, cmd.UserID)
	if err != nil {
		return dto.User{}, err
	}
	if cmd.Active {
		user.Activate(now)
	} else {
		user.Deactivate(now)
	}
	if err := unit.Users().Save(ctx, user); err != nil {
		return dto.User{}, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, user); err != nil {
		return dto.User{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.User{}, err
	}
	if !cmd.Active && h.Sessions != nil {
		if err := h.Sessions.DeleteByUser(ctx, user.ID); err != nil && h.Logger != nil {
			h.Logger.Warn("revoke sessions failed", "user_id", user.ID, "error", err)
		}
	}
	if h.Logger != nil {
		h.Logger.Info("user status changed", "user_id", user.ID, "active", user.Active, "by", cmd.Actor.ID)
	}
	return dto.MapUser(user), nil
}

type PlatformStatsQuery struct {
	Actor support.Actor
}

func (q PlatformStatsQuery) Key() string                     { return platformStatsKey }
func (q PlatformStatsQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q PlatformStatsQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type PlatformStatsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *PlatformStatsHandler) Handle(ctx context.Context, _ PlatformStatsQuery) (dto.PlatformStats, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PlatformStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	users, err := unit.Users().Counts(ctx)
	if err != nil {
		return dto.PlatformStats{}, err
	}
	hostels, err := unit.Hostels().Counts(ctx)
	if err != nil {
		return dto.PlatformStats{}, err
	}
	bookings, err := unit.Bookings().Stats(ctx, domainbooking.StatsFilter{})
	if err != nil {
		return dto.PlatformStats{}, err
	}
	reviews, err := unit.Reviews().SummaryAll(ctx)
	if err != nil {
		return dto.PlatformStats{}, err
	}

	byRole := make(map[string]int, len(users.ByRole))
	for role, n := range users.ByRole {
		byRole[string(role)] = n
	}
	byStatus := make(map[string]int, len(bookings.ByStatus))
	for status, n := range bookings.ByStatus {
		byStatus[string(status)] = n
	}
	return dto.PlatformStats{
		Users: dto.UserCounts{
			Total:    users.Total,
			Active:   users.Active,
			Verified: users.Verified,
			ByRole:   byRole,
		},
		Hostels: dto.HostelCounts{
			Total:    hostels.Total,
			Verified: hostels.Verified,
			Featured: hostels.Featured,
		},
		Bookings: dto.BookingCounts{
			Total:    bookings.Total,
			ByStatus: byStatus,
			Revenue:  float64(bookings.Revenue) / 100,
			Currency: bookings.Currency,
		},
		Reviews: dto.ReviewCounts{
			Total:         reviews.Count,
			AverageRating: reviews.Average(),
		},
	}, nil
}

var (
	_ queries.Handler[ListUsersQuery, dto.UserPage]          = (*ListUsersHandler)(nil)
	_ commands.Handler[ChangeRoleCommand, dto.User]          = (*ChangeRoleHandler)(nil)
	_ commands.Handler[SetUserActiveCommand, dto.User]       = (*SetUserActiveHandler)(nil)
	_ queries.Handler[PlatformStatsQuery, dto.PlatformStats] = (*PlatformStatsHandler)(nil)
)
