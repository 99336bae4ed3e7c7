package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	identityapp "hostelhunt/internal/app/handlers/identity"
	"hostelhunt/internal/app/notifications"
	"hostelhunt/internal/app/queries"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

type AdminHTTP interface {
	ListUsers(c *gin.Context)
	ChangeRole(c *gin.Context)
	SetUserStatus(c *gin.Context)
	VerifyHostel(c *gin.Context)
	FeatureHostel(c *gin.Context)
	Stats(c *gin.Context)
	DeleteReview(c *gin.Context)
	UpdateBookingStatus(c *gin.Context)
	RunReminders(c *gin.Context)
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=student landlord admin"`
}

type activeRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type flagRequest struct {
	Value *bool `json:"value"`
}

type remindersRequest struct {
	Date string `json:"date"`
}

func (h AdminHandler) ListUsers(c *gin.Context) {
	page, perPage := pageParams(c)
	query := identityapp.ListUsersQuery{
		Actor:         actorOf(c),
		Role:          domainuser.Role(strings.TrimSpace(c.Query("role"))),
		Active:        parseOptionalBool(c.Query("is_active")),
		EmailVerified: parseOptionalBool(c.Query("email_verified")),
		Query:         strings.TrimSpace(c.Query("q")),
		Page:          page,
		PerPage:       perPage,
	}
	result, err := queries.Ask[identityapp.ListUsersQuery, dto.UserPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ChangeRole(c *gin.Context) {
	var req roleRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := identityapp.ChangeRoleCommand{
		Actor:  actorOf(c),
		UserID: domainuser.ID(c.Param("id")),
		Role:   domainuser.Role(req.Role),
		Now:    time.Now().UTC(),
	}
	user, err := commands.Dispatch[identityapp.ChangeRoleCommand, dto.User](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h AdminHandler) SetUserStatus(c *gin.Context) {
	var req activeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := identityapp.SetUserActiveCommand{
		Actor:  actorOf(c),
		UserID: domainuser.ID(c.Param("id")),
		Active: *req.IsActive,
		Now:    time.Now().UTC(),
	}
	user, err := commands.Dispatch[identityapp.SetUserActiveCommand, dto.User](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// VerifyHostel sets the flag from an optional {"value": bool}; an empty body verifies.
func (h AdminHandler) VerifyHostel(c *gin.Context) {
	value, ok := h.flag(c)
	if !ok {
		return
	}
	cmd := hostelsapp.SetVerifiedCommand{
		Actor:    actorOf(c),
		HostelID: domainhostels.ID(c.Param("id")),
		Verified: value,
		Now:      time.Now().UTC(),
	}
	hostel, err := commands.Dispatch[hostelsapp.SetVerifiedCommand, dto.Hostel](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, hostel)
}

func (h AdminHandler) FeatureHostel(c *gin.Context) {
	value, ok := h.flag(c)
	if !ok {
		return
	}
	cmd := hostelsapp.SetFeaturedCommand{
		Actor:    actorOf(c),
		HostelID: domainhostels.ID(c.Param("id")),
		Featured: value,
		Now:      time.Now().UTC(),
	}
	hostel, err := commands.Dispatch[hostelsapp.SetFeaturedCommand, dto.Hostel](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, hostel)
}

func (h AdminHandler) Stats(c *gin.Context) {
	stats, err := queries.Ask[identityapp.PlatformStatsQuery, dto.PlatformStats](c.Request.Context(), h.Queries, identityapp.PlatformStatsQuery{Actor: actorOf(c)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h AdminHandler) DeleteReview(c *gin.Context) {
	if actorOf(c).Role != domainuser.RoleAdmin {
		respondMessage(c, http.StatusForbidden, "insufficient permissions")
		return
	}
	if err := deleteReview(c, h.Commands); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

func (h AdminHandler) UpdateBookingStatus(c *gin.Context) {
	if actorOf(c).Role != domainuser.RoleAdmin {
		respondMessage(c, http.StatusForbidden, "insufficient permissions")
		return
	}
	var req statusRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	booking, err := dispatchStatus(c, h.Commands, req.Status)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// RunReminders runs the reminder sweeps for {"date": "YYYY-MM-DD"}, default today.
func (h AdminHandler) RunReminders(c *gin.Context) {
	var req remindersRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	today := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseDate("date", req.Date)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		today = parsed
	}
	cmd := notifications.RunRemindersCommand{Actor: actorOf(c), Today: today}
	report, err := commands.Dispatch[notifications.RunRemindersCommand, dto.ReminderReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h AdminHandler) flag(c *gin.Context) (bool, bool) {
	var req flagRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.Logger, err)
			return false, false
		}
	}
	if req.Value == nil {
		return true, true
	}
	return *req.Value, true
}

var _ AdminHTTP = (*AdminHandler)(nil)
