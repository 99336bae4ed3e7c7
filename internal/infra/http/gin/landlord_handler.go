package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	bookingapp "hostelhunt/internal/app/handlers/booking"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	identityapp "hostelhunt/internal/app/handlers/identity"
	"hostelhunt/internal/app/queries"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

type LandlordsHTTP interface {
	CreateProfile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	Profile(c *gin.Context)
	Hostels(c *gin.Context)
	Bookings(c *gin.Context)
	Public(c *gin.Context)
}

type LandlordsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type landlordProfileRequest struct {
	BusinessName *string `json:"business_name" binding:"omitempty,min=2,max=200"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,phone"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	Address      *string `json:"address" binding:"omitempty,max=500"`
	Description  *string `json:"description" binding:"omitempty,max=2000"`
}

func (h LandlordsHandler) CreateProfile(c *gin.Context) {
	var req landlordProfileRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := identityapp.CreateLandlordProfileCommand{
		Actor:        actorOf(c),
		BusinessName: deref(req.BusinessName),
		ContactPhone: deref(req.ContactPhone),
		ContactEmail: deref(req.ContactEmail),
		Address:      deref(req.Address),
		Description:  deref(req.Description),
		Now:          time.Now().UTC(),
	}
	landlord, err := commands.Dispatch[identityapp.CreateLandlordProfileCommand, dto.Landlord](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, landlord)
}

func (h LandlordsHandler) UpdateProfile(c *gin.Context) {
	var req landlordProfileRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := identityapp.UpdateLandlordProfileCommand{
		Actor:        actorOf(c),
		BusinessName: req.BusinessName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Address:      req.Address,
		Description:  req.Description,
		Now:          time.Now().UTC(),
	}
	landlord, err := commands.Dispatch[identityapp.UpdateLandlordProfileCommand, dto.Landlord](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, landlord)
}

func (h LandlordsHandler) Profile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	landlord, err := queries.Ask[identityapp.GetLandlordProfileQuery, dto.Landlord](c.Request.Context(), h.Queries, identityapp.GetLandlordProfileQuery{UserID: principal.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, landlord)
}

func (h LandlordsHandler) Hostels(c *gin.Context) {
	items, err := queries.Ask[hostelsapp.LandlordHostelsQuery, []dto.Hostel](c.Request.Context(), h.Queries, hostelsapp.LandlordHostelsQuery{Actor: actorOf(c)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h LandlordsHandler) Bookings(c *gin.Context) {
	page, perPage := pageParams(c)
	query := bookingapp.ListForLandlordQuery{
		Actor:    actorOf(c),
		HostelID: domainhostels.ID(strings.TrimSpace(c.Query("hostel_id"))),
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PerPage:  perPage,
	}
	result, err := queries.Ask[bookingapp.ListForLandlordQuery, dto.BookingPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h LandlordsHandler) Public(c *gin.Context) {
	query := identityapp.PublicLandlordQuery{LandlordID: domainuser.LandlordID(c.Param("id"))}
	landlord, err := queries.Ask[identityapp.PublicLandlordQuery, dto.LandlordPublic](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, landlord)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

var _ LandlordsHTTP = (*LandlordsHandler)(nil)
