package hostels

import (
	"context"
	"log/slog"
	"time"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	verifyHostelKey  = "hostels.admin.verify"
	featureHostelKey = "hostels.admin.feature"
)

var adminOnly = []domainuser.Role{domainuser.RoleAdmin}

// SetVerifiedCommand toggles the verification flag. Verifying notifies the landlord.
type SetVerifiedCommand struct {
	Actor    support.Actor
	HostelID domainhostels.ID `validate:"required"`
	Verified bool
	Now      time.Time
}

func (c SetVerifiedCommand) Key() string                     { return verifyHostelKey }
func (c SetVerifiedCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c SetVerifiedCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type SetFeaturedCommand struct {
	Actor    support.Actor
	HostelID domainhostels.ID `validate:"required"`
	Featured bool
	Now      time.Time
}

func (c SetFeaturedCommand) Key() string                     { return featureHostelKey }
func (c SetFeaturedCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c SetFeaturedCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type ModerationHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ModerationHandler) HandleVerify(ctx context.Context, cmd SetVerifiedCommand) (dto.Hostel, error) {
	return h.apply(ctx, cmd.HostelID, func(hostel *domainhostels.Hostel) {
		hostel.SetVerified(cmd.Verified, support.Now(cmd.Now))
	})
}

func (h *ModerationHandler) HandleFeature(ctx context.Context, cmd SetFeaturedCommand) (dto.Hostel, error) {
	return h.apply(ctx, cmd.HostelID, func(hostel *domainhostels.Hostel) {
		hostel.SetFeatured(cmd.Featured, support.Now(cmd.Now))
	})
}

func (h *ModerationHandler) apply(ctx context.Context, id domainhostels.ID, mutate func(*domainhostels.Hostel)) (dto.Hostel, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hostel{}, err
	}
	defer unit.Release(ctx)

	hostel, err := unit.Hostels().ByID(ctx, id)
	if err != nil {
		return dto.Hostel{}, err
	}
	mutate(hostel)
	if err := unit.Hostels().Save(ctx, hostel); err != nil {
		return dto.Hostel{}, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, hostel); err != nil {
		return dto.Hostel{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.Hostel{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("hostel moderated", "hostel_id", hostel.ID, "verified", hostel.Verified, "featured", hostel.Featured)
	}
	return dto.MapHostel(hostel), nil
}

