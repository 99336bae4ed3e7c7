package payments

import (
	"context"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	historyKey         = "payments.history"
	bookingPaymentsKey = "payments.by_booking"
)

type HistoryQuery struct {
	Actor   support.Actor
	Page    int `validate:"gte=0"`
	PerPage int `validate:"gte=0"`
}

func (q HistoryQuery) Key() string                     { return historyKey }
func (q HistoryQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q HistoryQuery) AllowedRoles() []domainuser.Role { return anyRole }

type BookingPaymentsQuery struct {
	Actor     support.Actor
	BookingID domainbooking.ID `validate:"required"`
}

func (q BookingPaymentsQuery) Key() string                     { return bookingPaymentsKey }
func (q BookingPaymentsQuery) ActorRole() domainuser.Role      { return q.Actor.Role }
func (q BookingPaymentsQuery) AllowedRoles() []domainuser.Role { return anyRole }

type QueryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandler) History(ctx context.Context, q HistoryQuery) (dto.PaymentPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PaymentPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	paging := dto.NewPaging(q.Page, q.PerPage)
	items, total, err := unit.Payments().ListByUser(ctx, q.Actor.ID, paging.PerPage, paging.Offset())
	if err != nil {
		return dto.PaymentPage{}, err
	}
	return dto.PaymentPage{
		Payments:    dto.MapPayments(items),
		Total:       total,
		Pages:       paging.Pages(total),
		CurrentPage: paging.Page,
		PerPage:     paging.PerPage,
	}, nil
}

func (h *QueryHandler) ByBooking(ctx context.Context, q BookingPaymentsQuery) ([]dto.Payment, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(ctx, q.BookingID)
	if err != nil {
		return nil, err
	}
	if !q.Actor.IsAdmin() {
		if err := booking.EnsureOwner(q.Actor.ID); err != nil {
			return nil, err
		}
	}
	items, err := unit.Payments().ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return dto.MapPayments(items), nil
}

var (
	_ queries.HandlerFunc[HistoryQuery, dto.PaymentPage]       = (*QueryHandler)(nil).History
	_ queries.HandlerFunc[BookingPaymentsQuery, []dto.Payment] = (*QueryHandler)(nil).ByBooking
)
