package hostels

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	createHostelKey = "hostels.create"
	updateHostelKey = "hostels.update"
	deleteHostelKey = "hostels.delete"
)

var landlordOnly = []domainuser.Role{domainuser.RoleLandlord}

type CreateHostelCommand struct {
	Actor       support.Actor
	Name        string   `validate:"required,min=2,max=200"`
	Location    string   `validate:"required,min=2,max=200"`
	Description string   `validate:"required,min=10,max=2000"`
	Price       float64  `validate:"gte=0"`
	Currency    string   `validate:"omitempty,len=3"`
	Capacity    int      `validate:"min=1,max=1000"`
	RoomType    string   `validate:"required"`
	Amenities   []int    `validate:"max=50"`
	Images      []string `validate:"max=20"`
	Latitude    *float64 `validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `validate:"omitempty,min=-180,max=180"`
	Features    map[string]bool
	Now         time.Time
}

func (c CreateHostelCommand) Key() string                     { return createHostelKey }
func (c CreateHostelCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c CreateHostelCommand) AllowedRoles() []domainuser.Role { return landlordOnly }

type CreateHostelHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CreateHostelHandler) Handle(ctx context.Context, cmd CreateHostelCommand) (dto.Hostel, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hostel{}, err
	}
	defer unit.Release(ctx)

	landlord, err := unit.Landlords().ByUserID(ctx, cmd.Actor.ID)
	if err != nil {
		return dto.Hostel{}, err
	}
	price, err := money.FromMajor(cmd.Price, cmd.Currency)
	if err != nil {
		return dto.Hostel{}, domainhostels.ErrNegativePrice
	}
	hostel, err := domainhostels.New(domainhostels.CreateParams{
		ID:          domainhostels.ID(uuid.NewString()),
		LandlordID:  landlord.ID,
		Name:        cmd.Name,
		Location:    cmd.Location,
		Description: cmd.Description,
		Price:       price,
		Capacity:    cmd.Capacity,
		RoomType:    domainhostels.RoomType(cmd.RoomType),
		Amenities:   cmd.Amenities,
		Images:      cmd.Images,
		Coordinates: coordinates(cmd.Latitude, cmd.Longitude),
		Features:    cmd.Features,
		Now:         support.Now(cmd.Now),
	})
	if err != nil {
		return dto.Hostel{}, err
	}
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
		h.Logger.Info("hostel created", "hostel_id", hostel.ID, "landlord_id", landlord.ID)
	}
	return dto.MapHostel(hostel), nil
}

// UpdateHostelCommand carries a partial edit; nil fields are left unchanged.
type UpdateHostelCommand struct {
	Actor       support.Actor
	HostelID    domainhostels.ID `validate:"required"`
	Name        *string          `validate:"omitempty,min=2,max=200"`
	Location    *string          `validate:"omitempty,min=2,max=200"`
	Description *string          `validate:"omitempty,min=10,max=2000"`
	Price       *float64         `validate:"omitempty,gte=0"`
	Capacity    *int             `validate:"omitempty,min=1,max=1000"`
	RoomType    *string
	Amenities   []int    `validate:"omitempty,max=50"`
	Images      []string `validate:"omitempty,max=20"`
	Latitude    *float64 `validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `validate:"omitempty,min=-180,max=180"`
	Features    map[string]bool
	Now         time.Time
}

func (c UpdateHostelCommand) Key() string                     { return updateHostelKey }
func (c UpdateHostelCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c UpdateHostelCommand) AllowedRoles() []domainuser.Role { return landlordOnly }

type UpdateHostelHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *UpdateHostelHandler) Handle(ctx context.Context, cmd UpdateHostelCommand) (dto.Hostel, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hostel{}, err
	}
	defer unit.Release(ctx)

	hostel, err := ownedHostel(ctx, unit, cmd.Actor, cmd.HostelID)
	if err != nil {
		return dto.Hostel{}, err
	}
	update := domainhostels.Update{
		Name:        cmd.Name,
		Location:    cmd.Location,
		Description: cmd.Description,
		Capacity:    cmd.Capacity,
		Amenities:   cmd.Amenities,
		Images:      cmd.Images,
		Coordinates: coordinates(cmd.Latitude, cmd.Longitude),
		Features:    cmd.Features,
	}
	if cmd.Price != nil {
		price, err := money.FromMajor(*cmd.Price, hostel.Price.Currency)
		if err != nil {
			return dto.Hostel{}, domainhostels.ErrNegativePrice
		}
		update.Price = &price
	}
	if cmd.RoomType != nil {
		rt := domainhostels.RoomType(*cmd.RoomType)
		update.RoomType = &rt
	}
	if err := hostel.Apply(update, support.Now(cmd.Now)); err != nil {
		return dto.Hostel{}, err
	}
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
		h.Logger.Info("hostel updated", "hostel_id", hostel.ID)
	}
	return dto.MapHostel(hostel), nil
}

type DeleteHostelCommand struct {
	Actor    support.Actor
	HostelID domainhostels.ID `validate:"required"`
}

func (c DeleteHostelCommand) Key() string                     { return deleteHostelKey }
func (c DeleteHostelCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c DeleteHostelCommand) AllowedRoles() []domainuser.Role { return landlordOnly }

type DeleteHostelHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *DeleteHostelHandler) Handle(ctx context.Context, cmd DeleteHostelCommand) (struct{}, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return struct{}{}, err
	}
	defer unit.Release(ctx)

	hostel, err := ownedHostel(ctx, unit, cmd.Actor, cmd.HostelID)
	if err != nil {
		return struct{}{}, err
	}
	n, err := unit.Bookings().CountByHostel(ctx, hostel.ID)
	if err != nil {
		return struct{}{}, err
	}
	if n > 0 {
		return struct{}{}, domainhostels.ErrHasBookings
	}
	if err := unit.Hostels().Delete(ctx, hostel.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("hostel deleted", "hostel_id", hostel.ID, "landlord_id", hostel.LandlordID)
	}
	return struct{}{}, nil
}

// ownedHostel loads a hostel and checks it belongs to the acting landlord.
func ownedHostel(ctx context.Context, unit uow.UnitOfWork, actor support.Actor, id domainhostels.ID) (*domainhostels.Hostel, error) {
	landlord, err := unit.Landlords().ByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	hostel, err := unit.Hostels().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := hostel.EnsureOwner(landlord.ID); err != nil {
		return nil, err
	}
	return hostel, nil
}

func coordinates(lat, lng *float64) *domainhostels.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &domainhostels.Coordinates{Lat: *lat, Lng: *lng}
}

var (
	_ commands.Handler[CreateHostelCommand, dto.Hostel] = (*CreateHostelHandler)(nil)
	_ commands.Handler[UpdateHostelCommand, dto.Hostel] = (*UpdateHostelHandler)(nil)
	_ commands.Handler[DeleteHostelCommand, struct{}]   = (*DeleteHostelHandler)(nil)
)
