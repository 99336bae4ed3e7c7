package reviews

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/daterange"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	createReviewKey = "reviews.create"
	updateReviewKey = "reviews.update"
	deleteReviewKey = "reviews.delete"
)

var anyRole = []domainuser.Role{domainuser.RoleStudent, domainuser.RoleLandlord, domainuser.RoleAdmin}

type CreateReviewCommand struct {
	Actor    support.Actor
	HostelID domainhostels.ID `validate:"required"`
	Rating   int              `validate:"min=1,max=5"`
	Comment  string           `validate:"max=1000"`
	Now      time.Time
}

func (c CreateReviewCommand) Key() string                     { return createReviewKey }
func (c CreateReviewCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c CreateReviewCommand) AllowedRoles() []domainuser.Role { return anyRole }

type UpdateReviewCommand struct {
	Actor    support.Actor
	ReviewID domainreviews.ID `validate:"required"`
	Rating   *int             `validate:"omitempty,min=1,max=5"`
	Comment  *string          `validate:"omitempty,max=1000"`
	Now      time.Time
}

func (c UpdateReviewCommand) Key() string                     { return updateReviewKey }
func (c UpdateReviewCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c UpdateReviewCommand) AllowedRoles() []domainuser.Role { return anyRole }

// DeleteReviewCommand removes a review. Administrators bypass the authorship check.
type DeleteReviewCommand struct {
	Actor    support.Actor
	ReviewID domainreviews.ID `validate:"required"`
	Now      time.Time
}

func (c DeleteReviewCommand) Key() string                     { return deleteReviewKey }
func (c DeleteReviewCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c DeleteReviewCommand) AllowedRoles() []domainuser.Role { return anyRole }

type CommandHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Create accepts a review only from a guest with a completed stay at the hostel.
func (h *CommandHandler) Create(ctx context.Context, cmd CreateReviewCommand) (dto.Review, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Review{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	hostel, err := unit.Hostels().ByID(ctx, cmd.HostelID)
	if err != nil {
		return dto.Review{}, err
	}
	eligible, err := unit.Bookings().HasCompletedStay(ctx, cmd.Actor.ID, hostel.ID, daterange.Day(now))
	if err != nil {
		return dto.Review{}, err
	}
	if !eligible {
		return dto.Review{}, domainreviews.ErrNotEligible
	}
	if _, err := unit.Reviews().ByUserAndHostel(ctx, cmd.Actor.ID, hostel.ID); err == nil {
		return dto.Review{}, domainreviews.ErrAlreadyReviewed
	} else if !errors.Is(err, domainreviews.ErrNotFound) {
		return dto.Review{}, err
	}

	review, err := domainreviews.New(domainreviews.CreateParams{
		ID:       domainreviews.ID(uuid.NewString()),
		UserID:   cmd.Actor.ID,
		HostelID: hostel.ID,
		Rating:   cmd.Rating,
		Comment:  cmd.Comment,
		Now:      now,
	})
	if err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return dto.Review{}, err
	}
	if err := h.finish(ctx, unit, review, now); err != nil {
		return dto.Review{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("review submitted", "review_id", review.ID, "hostel_id", hostel.ID, "user_id", cmd.Actor.ID, "rating", review.Rating)
	}
	return dto.MapReview(review), nil
}

func (h *CommandHandler) Update(ctx context.Context, cmd UpdateReviewCommand) (dto.Review, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Review{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	review, err := unit.Reviews().ByID(ctx, cmd.ReviewID)
	if err != nil {
		return dto.Review{}, err
	}
	if err := review.EnsureAuthor(cmd.Actor.ID); err != nil {
		return dto.Review{}, err
	}
	if err := review.Update(cmd.Rating, cmd.Comment, now); err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return dto.Review{}, err
	}
	if err := h.finish(ctx, unit, review, now); err != nil {
		return dto.Review{}, err
	}
	return dto.MapReview(review), nil
}

func (h *CommandHandler) Delete(ctx context.Context, cmd DeleteReviewCommand) (struct{}, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return struct{}{}, err
	}
	defer unit.Release(ctx)

	now := support.Now(cmd.Now)
	review, err := unit.Reviews().ByID(ctx, cmd.ReviewID)
	if err != nil {
		return struct{}{}, err
	}
	if !cmd.Actor.IsAdmin() {
		if err := review.EnsureAuthor(cmd.Actor.ID); err != nil {
			return struct{}{}, err
		}
	}
	review.MarkDeleted(now)
	if err := unit.Reviews().Delete(ctx, review.ID); err != nil {
		return struct{}{}, err
	}
	if err := h.finish(ctx, unit, review, now); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("review deleted", "review_id", review.ID, "hostel_id", review.HostelID, "by", cmd.Actor.ID)
	}
	return struct{}{}, nil
}

func (h *CommandHandler) finish(ctx context.Context, unit *support.Unit, review *domainreviews.Review, now time.Time) error {
	if err := recomputeRatings(ctx, unit, review.HostelID, now); err != nil {
		return err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, review); err != nil {
		return err
	}
	return unit.Commit(ctx)
}

var (
	_ commands.HandlerFunc[CreateReviewCommand, dto.Review] = (*CommandHandler)(nil).Create
	_ commands.HandlerFunc[UpdateReviewCommand, dto.Review] = (*CommandHandler)(nil).Update
	_ commands.HandlerFunc[DeleteReviewCommand, struct{}]   = (*CommandHandler)(nil).Delete
)
