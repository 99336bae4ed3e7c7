package memory

import (
	"context"
	"sort"
	"strings"

	"hostelhunt/internal/domain/shared/events"
	domainuser "hostelhunt/internal/domain/user"
)

type userRepo struct{ u *Unit }

func (r userRepo) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	user, ok := r.u.store.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r userRepo) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	id, ok := r.u.store.emails[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(r.u.store.users[id]), nil
}

func (r userRepo) Save(_ context.Context, user *domainuser.User) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if user == nil || user.ID == "" {
		return domainuser.ErrIDRequired
	}
	s := r.u.store
	email := domainuser.NormalizeEmail(user.Email)
	if owner, ok := s.emails[email]; ok && owner != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := s.users[user.ID]; ok && prev.Email != email {
		remember(r.u, s.emails, prev.Email)
		delete(s.emails, prev.Email)
	}
	remember(r.u, s.emails, email)
	remember(r.u, s.users, user.ID)
	s.emails[email] = user.ID
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (r userRepo) List(_ context.Context, params domainuser.ListParams) ([]*domainuser.User, int, error) {
	query := strings.ToLower(strings.TrimSpace(params.Query))
	var matched []*domainuser.User
	for _, user := range r.u.store.users {
		if params.Role != "" && user.Role != params.Role {
			continue
		}
		if params.Active != nil && user.Active != *params.Active {
			continue
		}
		if params.EmailVerified != nil && user.EmailVerified != *params.EmailVerified {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(user.Name), query) && !strings.Contains(user.Email, query) {
			continue
		}
		matched = append(matched, user)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	page := window(matched, params.Limit, params.Offset)
	out := make([]*domainuser.User, 0, len(page))
	for _, user := range page {
		out = append(out, cloneUser(user))
	}
	return out, len(matched), nil
}

func (r userRepo) Counts(context.Context) (domainuser.Counts, error) {
	counts := domainuser.Counts{ByRole: make(map[domainuser.Role]int)}
	for _, user := range r.u.store.users {
		counts.Total++
		if user.Active {
			counts.Active++
		}
		if user.EmailVerified {
			counts.Verified++
		}
		counts.ByRole[user.Role]++
	}
	return counts, nil
}

type landlordRepo struct{ u *Unit }

func (r landlordRepo) ByID(_ context.Context, id domainuser.LandlordID) (*domainuser.Landlord, error) {
	landlord, ok := r.u.store.landlords[id]
	if !ok {
		return nil, domainuser.ErrLandlordNotFound
	}
	copied := *landlord
	return &copied, nil
}

func (r landlordRepo) ByUserID(_ context.Context, userID domainuser.ID) (*domainuser.Landlord, error) {
	for _, landlord := range r.u.store.landlords {
		if landlord.UserID == userID {
			copied := *landlord
			return &copied, nil
		}
	}
	return nil, domainuser.ErrLandlordNotFound
}

func (r landlordRepo) Save(_ context.Context, landlord *domainuser.Landlord) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if landlord == nil || landlord.ID == "" {
		return domainuser.ErrIDRequired
	}
	for id, existing := range r.u.store.landlords {
		if existing.UserID == landlord.UserID && id != landlord.ID {
			return domainuser.ErrLandlordExists
		}
	}
	remember(r.u, r.u.store.landlords, landlord.ID)
	copied := *landlord
	r.u.store.landlords[landlord.ID] = &copied
	return nil
}

func (r landlordRepo) Delete(_ context.Context, id domainuser.LandlordID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.store.landlords[id]; !ok {
		return domainuser.ErrLandlordNotFound
	}
	remember(r.u, r.u.store.landlords, id)
	delete(r.u.store.landlords, id)
	return nil
}

func cloneUser(user *domainuser.User) *domainuser.User {
	if user == nil {
		return nil
	}
	copied := *user
	copied.EventRecorder = events.EventRecorder{}
	return &copied
}

// window applies limit/offset to an ordered slice; a non-positive limit keeps the rest.
func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
