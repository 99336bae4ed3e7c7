package reviews

import (
	"context"
	"errors"

	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	hostelReviewsKey = "reviews.list_hostel"
	userReviewsKey   = "reviews.list_user"
	getReviewKey     = "reviews.get"
	reviewStatsKey   = "reviews.stats"
)

type HostelReviewsQuery struct {
	HostelID domainhostels.ID `validate:"required"`
	Page     int              `validate:"gte=0"`
	PerPage  int              `validate:"gte=0"`
}

func (q HostelReviewsQuery) Key() string { return hostelReviewsKey }

type UserReviewsQuery struct {
	UserID domainuser.ID `validate:"required"`
}

func (q UserReviewsQuery) Key() string { return userReviewsKey }

type GetReviewQuery struct {
	ReviewID domainreviews.ID `validate:"required"`
}

func (q GetReviewQuery) Key() string { return getReviewKey }

type ReviewStatsQuery struct {
	HostelID domainhostels.ID `validate:"required"`
}

func (q ReviewStatsQuery) Key() string { return reviewStatsKey }

type QueryHandler struct {
	UoWFactory uow.UoWFactory
}

// HostelReviews lists newest first together with the hostel average.
func (h *QueryHandler) HostelReviews(ctx context.Context, q HostelReviewsQuery) (dto.ReviewPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewPage{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if _, err := unit.Hostels().ByID(ctx, q.HostelID); err != nil {
		return dto.ReviewPage{}, err
	}
	paging := dto.NewPaging(q.Page, q.PerPage)
	items, total, err := unit.Reviews().ListByHostel(ctx, q.HostelID, paging.PerPage, paging.Offset())
	if err != nil {
		return dto.ReviewPage{}, err
	}
	summary, err := unit.Reviews().SummaryByHostels(ctx, []domainhostels.ID{q.HostelID})
	if err != nil {
		return dto.ReviewPage{}, err
	}
	out, err := withAuthors(ctx, unit, items)
	if err != nil {
		return dto.ReviewPage{}, err
	}
	return dto.ReviewPage{
		Reviews:       out,
		Total:         total,
		Pages:         paging.Pages(total),
		CurrentPage:   paging.Page,
		PerPage:       paging.PerPage,
		AverageRating: summary.Average(),
	}, nil
}

func (h *QueryHandler) UserReviews(ctx context.Context, q UserReviewsQuery) ([]dto.Review, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Reviews().ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return withAuthors(ctx, unit, items)
}

func (h *QueryHandler) Get(ctx context.Context, q GetReviewQuery) (dto.Review, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Review{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	review, err := unit.Reviews().ByID(ctx, q.ReviewID)
	if err != nil {
		return dto.Review{}, err
	}
	out, err := withAuthors(ctx, unit, []*domainreviews.Review{review})
	if err != nil {
		return dto.Review{}, err
	}
	return out[0], nil
}

func (h *QueryHandler) Stats(ctx context.Context, q ReviewStatsQuery) (dto.ReviewStats, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if _, err := unit.Hostels().ByID(ctx, q.HostelID); err != nil {
		return dto.ReviewStats{}, err
	}
	summary, err := unit.Reviews().SummaryByHostels(ctx, []domainhostels.ID{q.HostelID})
	if err != nil {
		return dto.ReviewStats{}, err
	}
	return dto.MapReviewStats(summary), nil
}

func withAuthors(ctx context.Context, unit uow.UnitOfWork, items []*domainreviews.Review) ([]dto.Review, error) {
	names := make(map[domainuser.ID]string)
	out := make([]dto.Review, 0, len(items))
	for _, r := range items {
		name, ok := names[r.UserID]
		if !ok {
			author, err := unit.Users().ByID(ctx, r.UserID)
			switch {
			case err == nil:
				name = author.Name
			case !errors.Is(err, domainuser.ErrNotFound):
				return nil, err
			}
			names[r.UserID] = name
		}
		item := dto.MapReview(r)
		item.UserName = name
		out = append(out, item)
	}
	return out, nil
}

var (
	_ queries.HandlerFunc[HostelReviewsQuery, dto.ReviewPage] = (*QueryHandler)(nil).HostelReviews
	_ queries.HandlerFunc[UserReviewsQuery, []dto.Review]     = (*QueryHandler)(nil).UserReviews
	_ queries.HandlerFunc[GetReviewQuery, dto.Review]         = (*QueryHandler)(nil).Get
	_ queries.HandlerFunc[ReviewStatsQuery, dto.ReviewStats]  = (*QueryHandler)(nil).Stats
)
