package memory

import (
	"context"
	"sort"
	"strings"

	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/events"
	domainuser "hostelhunt/internal/domain/user"
)

type hostelRepo struct{ u *Unit }

func (r hostelRepo) ByID(_ context.Context, id domainhostels.ID) (*domainhostels.Hostel, error) {
	hostel, ok := r.u.store.hostels[id]
	if !ok {
		return nil, domainhostels.ErrNotFound
	}
	return cloneHostel(hostel), nil
}

// ByIDForUpdate needs no row lock: write units already hold the store exclusively.
func (r hostelRepo) ByIDForUpdate(ctx context.Context, id domainhostels.ID) (*domainhostels.Hostel, error) {
	return r.ByID(ctx, id)
}

func (r hostelRepo) Save(_ context.Context, hostel *domainhostels.Hostel) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if hostel == nil || hostel.ID == "" {
		return domainhostels.ErrNotFound
	}
	remember(r.u, r.u.store.hostels, hostel.ID)
	r.u.store.hostels[hostel.ID] = cloneHostel(hostel)
	return nil
}

func (r hostelRepo) Delete(_ context.Context, id domainhostels.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.store.hostels[id]; !ok {
		return domainhostels.ErrNotFound
	}
	remember(r.u, r.u.store.hostels, id)
	delete(r.u.store.hostels, id)
	return nil
}

func (r hostelRepo) ListByLandlord(_ context.Context, landlordID domainuser.LandlordID) ([]*domainhostels.Hostel, error) {
	params := domainhostels.SearchParams{LandlordID: landlordID}.Normalized()
	return r.matching(params), nil
}

func (r hostelRepo) Search(_ context.Context, params domainhostels.SearchParams) (domainhostels.SearchResult, error) {
	params = params.Normalized()
	return domainhostels.Paginate(r.matching(params), params), nil
}

// matching returns sorted clones of every hostel passing the filters.
func (r hostelRepo) matching(params domainhostels.SearchParams) []*domainhostels.Hostel {
	var out []*domainhostels.Hostel
	for _, hostel := range r.u.store.hostels {
		if params.Matches(hostel) {
			out = append(out, cloneHostel(hostel))
		}
	}
	domainhostels.SortHostels(out, params)
	return out
}

func (r hostelRepo) Counts(context.Context) (domainhostels.Counts, error) {
	var counts domainhostels.Counts
	for _, hostel := range r.u.store.hostels {
		counts.Total++
		if hostel.Verified {
			counts.Verified++
		}
		if hostel.Featured {
			counts.Featured++
		}
	}
	return counts, nil
}

func (r hostelRepo) Suggest(_ context.Context, query string, limit int) ([]string, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	seen := make(map[string]struct{})
	out := []string{}
	for _, hostel := range r.u.store.hostels {
		for _, candidate := range []string{hostel.Name, hostel.Location} {
			if !strings.Contains(strings.ToLower(candidate), needle) {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return window(out, limit, 0), nil
}

func (r hostelRepo) PopularLocations(_ context.Context, limit int) ([]domainhostels.LocationCount, error) {
	counts := make(map[string]int)
	for _, hostel := range r.u.store.hostels {
		counts[hostel.Location]++
	}
	out := make([]domainhostels.LocationCount, 0, len(counts))
	for location, count := range counts {
		out = append(out, domainhostels.LocationCount{Location: location, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	return window(out, limit, 0), nil
}

func (r hostelRepo) PriceStats(context.Context) (domainhostels.PriceStats, error) {
	var (
		stats domainhostels.PriceStats
		sum   int64
	)
	for _, hostel := range r.u.store.hostels {
		amount := hostel.Price.Amount
		if stats.Count == 0 || amount < stats.Min {
			stats.Min = amount
		}
		if stats.Count == 0 || amount > stats.Max {
			stats.Max = amount
		}
		if stats.Currency == "" {
			stats.Currency = hostel.Price.Currency
		}
		stats.Count++
		sum += amount
	}
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

func (r hostelRepo) AmenityIDs(context.Context) ([]int, error) {
	seen := make(map[int]struct{})
	out := []int{}
	for _, hostel := range r.u.store.hostels {
		for _, id := range hostel.Amenities {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out, nil
}

func cloneHostel(hostel *domainhostels.Hostel) *domainhostels.Hostel {
	if hostel == nil {
		return nil
	}
	copied := *hostel
	copied.EventRecorder = events.EventRecorder{}
	copied.Amenities = append([]int(nil), hostel.Amenities...)
	copied.Images = append([]string(nil), hostel.Images...)
	if hostel.Coordinates != nil {
		coords := *hostel.Coordinates
		copied.Coordinates = &coords
	}
	if hostel.Features != nil {
		copied.Features = make(map[string]bool, len(hostel.Features))
		for k, v := range hostel.Features {
			copied.Features[k] = v
		}
	}
	return &copied
}
