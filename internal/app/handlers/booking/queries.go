package booking

import (
	"context"
	"errors"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	getBookingKey      = "booking.get"
	listMineKey        = "booking.list_mine"
	listForLandlordKey = "booking.list_landlord"
)

type GetBookingQuery struct {
	Actor     support.Actor
	BookingID domainbooking.ID `validate:"required"`
}

func (q GetBookingQuery) Key() string                     { return getBookingKey }
func (q GetBookingQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q GetBookingQuery) AllowedRoles() []domainuser.Role { return anyRole }

type ListMineQuery struct {
	Actor   support.Actor
	Status  string `validate:"omitempty,oneof=pending confirmed cancelled completed no_show refunded"`
	Page    int    `validate:"gte=0"`
	PerPage int    `validate:"gte=0"`
}

func (q ListMineQuery) Key() string                     { return listMineKey }
func (q ListMineQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q ListMineQuery) AllowedRoles() []domainuser.Role { return anyRole }

type ListForLandlordQuery struct {
	Actor    support.Actor
	HostelID domainhostels.ID
	Status   string `validate:"omitempty,oneof=pending confirmed cancelled completed no_show refunded"`
	Page     int    `validate:"gte=0"`
	PerPage  int    `validate:"gte=0"`
}

func (q ListForLandlordQuery) Key() string                { return listForLandlordKey }
func (q ListForLandlordQuery) ActorRole() domainuser.Role { return q.Actor.Role }

func (q ListForLandlordQuery) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleLandlord}
}

type QueryHandler struct {
	UoWFactory uow.UoWFactory
}

// Get returns a booking visible to its guest, the hostel's landlord or an administrator.
func (h *QueryHandler) Get(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(ctx, q.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	hostel, err := unit.Hostels().ByID(ctx, booking.HostelID)
	if err != nil && !errors.Is(err, domainhostels.ErrNotFound) {
		return dto.Booking{}, err
	}
	if !q.Actor.IsAdmin() && booking.UserID != q.Actor.ID {
		if hostel == nil {
			return dto.Booking{}, domainbooking.ErrNotOwner
		}
		if err := ensureHostelOwner(ctx, unit, q.Actor, hostel); err != nil {
			return dto.Booking{}, domainbooking.ErrNotOwner
		}
	}
	name := ""
	if hostel != nil {
		name = hostel.Name
	}
	return dto.MapBooking(booking, name), nil
}

func (h *QueryHandler) ListMine(ctx context.Context, q ListMineQuery) (dto.BookingPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return listPage(ctx, unit, domainbooking.ListParams{
		UserID: q.Actor.ID,
		Status: domainbooking.Status(q.Status),
	}, dto.NewPaging(q.Page, q.PerPage))
}

func (h *QueryHandler) ListForLandlord(ctx context.Context, q ListForLandlordQuery) (dto.BookingPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	paging := dto.NewPaging(q.Page, q.PerPage)
	landlord, err := unit.Landlords().ByUserID(ctx, q.Actor.ID)
	if err != nil {
		return dto.BookingPage{}, err
	}
	owned, err := unit.Hostels().ListByLandlord(ctx, landlord.ID)
	if err != nil {
		return dto.BookingPage{}, err
	}
	ids := make([]domainhostels.ID, 0, len(owned))
	for _, hostel := range owned {
		if q.HostelID == "" || hostel.ID == q.HostelID {
			ids = append(ids, hostel.ID)
		}
	}
	if len(ids) == 0 {
		return emptyPage(paging), nil
	}
	return listPage(ctx, unit, domainbooking.ListParams{
		HostelIDs: ids,
		Status:    domainbooking.Status(q.Status),
	}, paging)
}

func listPage(ctx context.Context, unit uow.UnitOfWork, params domainbooking.ListParams, paging dto.Paging) (dto.BookingPage, error) {
	params.Limit = paging.PerPage
	params.Offset = paging.Offset()
	items, total, err := unit.Bookings().List(ctx, params)
	if err != nil {
		return dto.BookingPage{}, err
	}
	names := make(map[domainhostels.ID]string)
	page := emptyPage(paging)
	page.Total = total
	page.Pages = paging.Pages(total)
	for _, b := range items {
		name, ok := names[b.HostelID]
		if !ok {
			name = hostelName(ctx, unit, b.HostelID)
			names[b.HostelID] = name
		}
		page.Bookings = append(page.Bookings, dto.MapBooking(b, name))
	}
	return page, nil
}

func emptyPage(paging dto.Paging) dto.BookingPage {
	return dto.BookingPage{
		Bookings:    []dto.Booking{},
		CurrentPage: paging.Page,
		PerPage:     paging.PerPage,
	}
}

var (
	_ queries.HandlerFunc[GetBookingQuery, dto.Booking]          = (*QueryHandler)(nil).Get
	_ queries.HandlerFunc[ListMineQuery, dto.BookingPage]        = (*QueryHandler)(nil).ListMine
	_ queries.HandlerFunc[ListForLandlordQuery, dto.BookingPage] = (*QueryHandler)(nil).ListForLandlord
)
