package memory

import (
	"context"
	"sort"

	domainhostels "hostelhunt/internal/domain/hostels"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/events"
	domainuser "hostelhunt/internal/domain/user"
)

type reviewRepo struct{ u *Unit }

func (r reviewRepo) ByID(_ context.Context, id domainreviews.ID) (*domainreviews.Review, error) {
	review, ok := r.u.store.reviews[id]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return cloneReview(review), nil
}

func (r reviewRepo) ByUserAndHostel(_ context.Context, userID domainuser.ID, hostelID domainhostels.ID) (*domainreviews.Review, error) {
	for _, review := range r.u.store.reviews {
		if review.UserID == userID && review.HostelID == hostelID {
			return cloneReview(review), nil
		}
	}
	return nil, domainreviews.ErrNotFound
}

func (r reviewRepo) Save(_ context.Context, review *domainreviews.Review) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if review == nil || review.ID == "" {
		return domainreviews.ErrNotFound
	}
	for id, existing := range r.u.store.reviews {
		if id != review.ID && existing.UserID == review.UserID && existing.HostelID == review.HostelID {
			return domainreviews.ErrAlreadyReviewed
		}
	}
	remember(r.u, r.u.store.reviews, review.ID)
	r.u.store.reviews[review.ID] = cloneReview(review)
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id domainreviews.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.store.reviews[id]; !ok {
		return domainreviews.ErrNotFound
	}
	remember(r.u, r.u.store.reviews, id)
	delete(r.u.store.reviews, id)
	return nil
}

func (r reviewRepo) ListByHostel(_ context.Context, hostelID domainhostels.ID, limit, offset int) ([]*domainreviews.Review, int, error) {
	matched := r.filter(func(review *domainreviews.Review) bool { return review.HostelID == hostelID })
	return window(matched, limit, offset), len(matched), nil
}

func (r reviewRepo) ListByUser(_ context.Context, userID domainuser.ID) ([]*domainreviews.Review, error) {
	return r.filter(func(review *domainreviews.Review) bool { return review.UserID == userID }), nil
}

func (r reviewRepo) SummaryByHostels(_ context.Context, hostelIDs []domainhostels.ID) (domainreviews.Summary, error) {
	set := hostelIDSet(hostelIDs)
	var summary domainreviews.Summary
	for _, review := range r.u.store.reviews {
		if _, ok := set[review.HostelID]; ok {
			summary.Add(review.Rating)
		}
	}
	return summary, nil
}

func (r reviewRepo) SummaryAll(context.Context) (domainreviews.Summary, error) {
	var summary domainreviews.Summary
	for _, review := range r.u.store.reviews {
		summary.Add(review.Rating)
	}
	return summary, nil
}

// filter returns clones of matching reviews, newest first.
func (r reviewRepo) filter(keep func(*domainreviews.Review) bool) []*domainreviews.Review {
	out := []*domainreviews.Review{}
	for _, review := range r.u.store.reviews {
		if keep(review) {
			out = append(out, cloneReview(review))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneReview(review *domainreviews.Review) *domainreviews.Review {
	copied := *review
	copied.EventRecorder = events.EventRecorder{}
	return &copied
}
