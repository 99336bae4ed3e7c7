package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	reviewsapp "hostelhunt/internal/app/handlers/reviews"
	"hostelhunt/internal/app/queries"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainreviews "hostelhunt/internal/domain/reviews"
)

type ReviewsHTTP interface {
	Create(c *gin.Context)
	Mine(c *gin.Context)
	ByHostel(c *gin.Context)
	Stats(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type ReviewsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createReviewRequest struct {
	HostelID string `json:"hostel_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comment  string `json:"comment" binding:"max=1000"`
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

func (h ReviewsHandler) Create(c *gin.Context) {
	var req createReviewRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := reviewsapp.CreateReviewCommand{
		Actor:    actorOf(c),
		HostelID: domainhostels.ID(req.HostelID),
		Rating:   req.Rating,
		Comment:  req.Comment,
		Now:      time.Now().UTC(),
	}
	review, err := commands.Dispatch[reviewsapp.CreateReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h ReviewsHandler) Mine(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := queries.Ask[reviewsapp.UserReviewsQuery, []dto.Review](c.Request.Context(), h.Queries, reviewsapp.UserReviewsQuery{UserID: principal.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h ReviewsHandler) ByHostel(c *gin.Context) {
	page, perPage := pageParams(c)
	query := reviewsapp.HostelReviewsQuery{
		HostelID: domainhostels.ID(c.Param("id")),
		Page:     page,
		PerPage:  perPage,
	}
	result, err := queries.Ask[reviewsapp.HostelReviewsQuery, dto.ReviewPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReviewsHandler) Stats(c *gin.Context) {
	query := reviewsapp.ReviewStatsQuery{HostelID: domainhostels.ID(c.Param("id"))}
	stats, err := queries.Ask[reviewsapp.ReviewStatsQuery, dto.ReviewStats](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h ReviewsHandler) Get(c *gin.Context) {
	query := reviewsapp.GetReviewQuery{ReviewID: domainreviews.ID(c.Param("id"))}
	review, err := queries.Ask[reviewsapp.GetReviewQuery, dto.Review](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h ReviewsHandler) Update(c *gin.Context) {
	var req updateReviewRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := reviewsapp.UpdateReviewCommand{
		Actor:    actorOf(c),
		ReviewID: domainreviews.ID(c.Param("id")),
		Rating:   req.Rating,
		Comment:  req.Comment,
		Now:      time.Now().UTC(),
	}
	review, err := commands.Dispatch[reviewsapp.UpdateReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h ReviewsHandler) Delete(c *gin.Context) {
	if err := deleteReview(c, h.Commands); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

func deleteReview(c *gin.Context, bus commands.Bus) error {
	cmd := reviewsapp.DeleteReviewCommand{
		Actor:    actorOf(c),
		ReviewID: domainreviews.ID(c.Param("id")),
		Now:      time.Now().UTC(),
	}
	_, err := commands.Dispatch[reviewsapp.DeleteReviewCommand, struct{}](c.Request.Context(), bus, cmd)
	return err
}

var _ ReviewsHTTP = (*ReviewsHandler)(nil)
