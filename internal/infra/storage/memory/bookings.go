package memory

import (
	"context"
	"sort"
	"time"

	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/events"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(_ context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	booking, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(booking), nil
}

func (r bookingRepo) Save(_ context.Context, booking *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if booking == nil || booking.ID == "" {
		return domainbooking.ErrNotFound
	}
	remember(r.u, r.u.store.bookings, booking.ID)
	r.u.store.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r bookingRepo) List(_ context.Context, params domainbooking.ListParams) ([]*domainbooking.Booking, int, error) {
	hostelSet := hostelIDSet(params.HostelIDs)
	var matched []*domainbooking.Booking
	for _, booking := range r.u.store.bookings {
		if params.UserID != "" && booking.UserID != params.UserID {
			continue
		}
		if hostelSet != nil {
			if _, ok := hostelSet[booking.HostelID]; !ok {
				continue
			}
		}
		if params.Status != "" && booking.Status != params.Status {
			continue
		}
		matched = append(matched, booking)
	}
	sortBookings(matched)
	page := window(matched, params.Limit, params.Offset)
	out := make([]*domainbooking.Booking, 0, len(page))
	for _, booking := range page {
		out = append(out, cloneBooking(booking))
	}
	return out, len(matched), nil
}

func (r bookingRepo) HasCompletedStay(_ context.Context, userID domainuser.ID, hostelID domainhostels.ID, today time.Time) (bool, error) {
	day := daterange.Day(today)
	for _, booking := range r.u.store.bookings {
		if booking.UserID != userID || booking.HostelID != hostelID {
			continue
		}
		if booking.Status == domainbooking.StatusCompleted && !booking.Range.CheckOut.After(day) {
			return true, nil
		}
	}
	return false, nil
}

func (r bookingRepo) Overlapping(_ context.Context, hostelID domainhostels.ID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, booking := range r.u.store.bookings {
		if booking.HostelID != hostelID || !booking.Active() {
			continue
		}
		if booking.Range.Overlaps(dr) {
			out = append(out, cloneBooking(booking))
		}
	}
	sortBookings(out)
	return out, nil
}

func (r bookingRepo) ListByDate(_ context.Context, query domainbooking.DateQuery) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for _, booking := range r.u.store.bookings {
		if query.Matches(booking) {
			out = append(out, cloneBooking(booking))
		}
	}
	sortBookings(out)
	return out, nil
}

func (r bookingRepo) CountByHostel(_ context.Context, hostelID domainhostels.ID) (int, error) {
	count := 0
	for _, booking := range r.u.store.bookings {
		if booking.HostelID == hostelID {
			count++
		}
	}
	return count, nil
}

func (r bookingRepo) Stats(_ context.Context, filter domainbooking.StatsFilter) (domainbooking.Stats, error) {
	hostelSet := hostelIDSet(filter.HostelIDs)
	stats := domainbooking.Stats{ByStatus: make(map[domainbooking.Status]int)}
	for _, booking := range r.u.store.bookings {
		if filter.UserID != "" && booking.UserID != filter.UserID {
			continue
		}
		if hostelSet != nil {
			if _, ok := hostelSet[booking.HostelID]; !ok {
				continue
			}
		}
		stats.Total++
		stats.ByStatus[booking.Status]++
		if booking.Status == domainbooking.StatusConfirmed || booking.Status == domainbooking.StatusCompleted {
			stats.Revenue += booking.Price.Total.Amount
			if stats.Currency == "" {
				stats.Currency = booking.Price.Total.Currency
			}
		}
	}
	if stats.Currency == "" {
		stats.Currency = money.DefaultCurrency
	}
	return stats, nil
}

func hostelIDSet(ids []domainhostels.ID) map[domainhostels.ID]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[domainhostels.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// sortBookings orders newest first, then by id.
func sortBookings(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneBooking(booking *domainbooking.Booking) *domainbooking.Booking {
	if booking == nil {
		return nil
	}
	copied := *booking
	copied.EventRecorder = events.EventRecorder{}
	copied.Price.Fees = append(copied.Price.Fees[:0:0], booking.Price.Fees...)
	return &copied
}
