package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	identityapp "hostelhunt/internal/app/handlers/identity"
	"hostelhunt/internal/app/queries"
	authsvc "hostelhunt/internal/app/services/auth"
)

type UsersHTTP interface {
	Profile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	ChangePassword(c *gin.Context)
	Stats(c *gin.Context)
	Deactivate(c *gin.Context)
}

type UsersHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Auth     *authsvc.Service
	Logger   *slog.Logger
}

type updateProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=100"`
	PhoneNumber  *string `json:"phone_number" binding:"omitempty,phone"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,max=500"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h UsersHandler) Profile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	user, err := queries.Ask[identityapp.GetProfileQuery, dto.User](c.Request.Context(), h.Queries, identityapp.GetProfileQuery{UserID: principal.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h UsersHandler) UpdateProfile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := identityapp.UpdateProfileCommand{
		Actor:        principal.Actor(),
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		ProfileImage: req.ProfileImage,
		Now:          time.Now().UTC(),
	}
	user, err := commands.Dispatch[identityapp.UpdateProfileCommand, dto.User](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h UsersHandler) ChangePassword(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h UsersHandler) Stats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	stats, err := queries.Ask[identityapp.UserStatsQuery, dto.UserStats](c.Request.Context(), h.Queries, identityapp.UserStatsQuery{UserID: principal.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h UsersHandler) Deactivate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if err := h.Auth.Deactivate(c.Request.Context(), principal.UserID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated successfully"})
}

var _ UsersHTTP = (*UsersHandler)(nil)
