package booking

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
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/pricing"
	"hostelhunt/internal/domain/shared/daterange"
	domainuser "hostelhunt/internal/domain/user"
)

const createBookingKey = "booking.create"

// Policy tunes booking creation.
type Policy struct {
	// PaymentRequired opens bookings as pending until the charge settles.
	PaymentRequired bool
	// EnforceCapacity rejects stays that would exceed the hostel capacity.
	EnforceCapacity bool
}

type CreateBookingCommand struct {
	Actor       support.Actor
	HostelID    domainhostels.ID `validate:"required"`
	CheckIn     time.Time        `validate:"required"`
	CheckOut    time.Time        `validate:"required"`
	Guests      int              `validate:"min=1,max=20"`
	PhoneNumber string           `validate:"required"`
	IdemKey     string
	Now         time.Time
}

func (c CreateBookingCommand) Key() string                 { return createBookingKey }
func (c CreateBookingCommand) ReplayKey() (string, string) { return string(c.Actor.ID), c.IdemKey }
func (c CreateBookingCommand) ReplayTarget() any           { return &dto.Booking{} }

func (c CreateBookingCommand) ActorRole() domainuser.Role { return c.Actor.Role }

func (c CreateBookingCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleStudent, domainuser.RoleLandlord, domainuser.RoleAdmin}
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Policy     Policy
	Logger     *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	user, err := unit.Users().ByID(ctx, cmd.Actor.ID)
	if err != nil {
		return nil, err
	}
	if err := user.EnsureActive(); err != nil {
		return nil, err
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := domainbooking.ValidateStay(dr, now); err != nil {
		return nil, err
	}

	var hostel *domainhostels.Hostel
	if h.Policy.EnforceCapacity {
		hostel, err = unit.Hostels().ByIDForUpdate(ctx, cmd.HostelID)
	} else {
		hostel, err = unit.Hostels().ByID(ctx, cmd.HostelID)
	}
	if err != nil {
		return nil, err
	}
	if h.Policy.EnforceCapacity {
		overlapping, err := unit.Bookings().Overlapping(ctx, hostel.ID, dr)
		if err != nil {
			return nil, err
		}
		if err := domainbooking.CheckCapacity(hostel.Capacity, cmd.Guests, overlapping); err != nil {
			return nil, err
		}
	}

	quote, err := pricing.Quote(hostel, dr)
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.New(domainbooking.CreateParams{
		ID:              domainbooking.ID(uuid.NewString()),
		UserID:          user.ID,
		HostelID:        hostel.ID,
		Range:           dr,
		Guests:          cmd.Guests,
		PhoneNumber:     cmd.PhoneNumber,
		Price:           quote,
		PaymentRequired: h.Policy.PaymentRequired,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking created",
			"booking_id", booking.ID,
			"hostel_id", hostel.ID,
			"user_id", user.ID,
			"nights", dr.Nights(),
			"total", booking.Total().String(),
		)
	}
	result := dto.MapBooking(booking, hostel.Name)
	return &result, nil
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
