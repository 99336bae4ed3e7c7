package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	createLandlordKey = "identity.landlord.create"
	updateLandlordKey = "identity.landlord.update"
	getLandlordKey    = "identity.landlord.get"
	publicLandlordKey = "identity.landlord.public"
)

// CreateLandlordProfileCommand upgrades a student to landlord and opens the profile.
type CreateLandlordProfileCommand struct {
	Actor        support.Actor
	BusinessName string `validate:"required,min=2,max=200"`
	ContactPhone string `validate:"omitempty,max=20"`
	ContactEmail string `validate:"omitempty,email"`
	Address      string `validate:"omitempty,max=500"`
	Description  string `validate:"omitempty,max=2000"`
	Now          time.Time
}

func (c CreateLandlordProfileCommand) Key() string { return createLandlordKey }

func (c CreateLandlordProfileCommand) ActorRole() domainuser.Role { return c.Actor.Role }

func (c CreateLandlordProfileCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleStudent, domainuser.RoleLandlord, domainuser.RoleAdmin}
}

type CreateLandlordProfileHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CreateLandlordProfileHandler) Handle(ctx context.Context, cmd CreateLandlordProfileCommand) (dto.Landlord, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Landlord{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	user, err := unit.Users().ByID(ctx, cmd.Actor.ID)
	if err != nil {
		return dto.Landlord{}, err
	}
	if _, err := unit.Landlords().ByUserID(ctx, user.ID); err == nil {
		return dto.Landlord{}, domainuser.ErrLandlordExists
	} else if !errors.Is(err, domainuser.ErrLandlordNotFound) {
		return dto.Landlord{}, err
	}
	if err := user.BecomeLandlord(now); err != nil {
		return dto.Landlord{}, err
	}
	landlord, err := domainuser.NewLandlord(domainuser.LandlordParams{
		ID:           domainuser.LandlordID(uuid.NewString()),
		Owner:        user,
		BusinessName: cmd.BusinessName,
		ContactPhone: cmd.ContactPhone,
		ContactEmail: cmd.ContactEmail,
		Address:      cmd.Address,
		Description:  cmd.Description,
		CreatedAt:    now,
	})
	if err != nil {
		return dto.Landlord{}, err
	}
	if err := unit.Users().Save(ctx, user); err != nil {
		return dto.Landlord{}, err
	}
	if err := unit.Landlords().Save(ctx, landlord); err != nil {
		return dto.Landlord{}, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, user); err != nil {
		return dto.Landlord{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.Landlord{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("landlord profile created", "user_id", user.ID, "landlord_id", landlord.ID)
	}
	return dto.MapLandlord(landlord), nil
}

type UpdateLandlordProfileCommand struct {
	Actor        support.Actor
	BusinessName *string `validate:"omitempty,min=2,max=200"`
	ContactPhone *string `validate:"omitempty,max=20"`
	ContactEmail *string `validate:"omitempty,email"`
	Address      *string `validate:"omitempty,max=500"`
	Description  *string `validate:"omitempty,max=2000"`
	Now          time.Time
}

func (c UpdateLandlordProfileCommand) Key() string                { return updateLandlordKey }
func (c UpdateLandlordProfileCommand) ActorRole() domainuser.Role { return c.Actor.Role }
func (c UpdateLandlordProfileCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleLandlord}
}

type UpdateLandlordProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UpdateLandlordProfileHandler) Handle(ctx context.Context, cmd UpdateLandlordProfileCommand) (dto.Landlord, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Landlord{}, err
	}
	defer unit.Release(ctx)

	landlord, err := unit.Landlords().ByUserID(ctx, cmd.Actor.ID)
	if err != nil {
		return dto.Landlord{}, err
	}
	err = landlord.Update(domainuser.LandlordUpdate{
		BusinessName: cmd.BusinessName,
		ContactPhone: cmd.ContactPhone,
		ContactEmail: cmd.ContactEmail,
		Address:      cmd.Address,
		Description:  cmd.Description,
	}, support.Now(cmd.Now))
	if err != nil {
		return dto.Landlord{}, err
	}
	if err := unit.Landlords().Save(ctx, landlord); err != nil {
		return dto.Landlord{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.Landlord{}, err
	}
	return dto.MapLandlord(landlord), nil
}

type GetLandlordProfileQuery struct {
	UserID domainuser.ID `validate:"required"`
}

func (q GetLandlordProfileQuery) Key() string { return getLandlordKey }

type GetLandlordProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetLandlordProfileHandler) Handle(ctx context.Context, q GetLandlordProfileQuery) (dto.Landlord, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Landlord{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	landlord, err := unit.Landlords().ByUserID(ctx, q.UserID)
	if err != nil {
		return dto.Landlord{}, err
	}
	return dto.MapLandlord(landlord), nil
}

// PublicLandlordQuery returns the landlord card shown to students with its hostels.
type PublicLandlordQuery struct {
	LandlordID domainuser.LandlordID `validate:"required"`
}

func (q PublicLandlordQuery) Key() string { return publicLandlordKey }

type PublicLandlordHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *PublicLandlordHandler) Handle(ctx context.Context, q PublicLandlordQuery) (dto.LandlordPublic, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.LandlordPublic{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	landlord, err := unit.Landlords().ByID(ctx, q.LandlordID)
	if err != nil {
		return dto.LandlordPublic{}, err
	}
	owner, err := unit.Users().ByID(ctx, landlord.UserID)
	if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return dto.LandlordPublic{}, err
	}
	items, err := unit.Hostels().ListByLandlord(ctx, landlord.ID)
	if err != nil {
		return dto.LandlordPublic{}, err
	}
	summary := dto.MapLandlordSummary(landlord, owner)
	summary.HostelCount = len(items)
	return dto.LandlordPublic{
		LandlordSummary: summary,
		Description:     landlord.Description,
		Hostels:         dto.MapHostels(items),
	}, nil
}

var (
	_ commands.Handler[CreateLandlordProfileCommand, dto.Landlord] = (*CreateLandlordProfileHandler)(nil)
	_ commands.Handler[UpdateLandlordProfileCommand, dto.Landlord] = (*UpdateLandlordProfileHandler)(nil)
	_ queries.Handler[GetLandlordProfileQuery, dto.Landlord]       = (*GetLandlordProfileHandler)(nil)
	_ queries.Handler[PublicLandlordQuery, dto.LandlordPublic]     = (*PublicLandlordHandler)(nil)
)
