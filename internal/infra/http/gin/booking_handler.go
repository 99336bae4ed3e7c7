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
	"hostelhunt/internal/app/queries"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
)

type BookingsHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Refund(c *gin.Context)
}

type BookingsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	HostelID    string `json:"hostel_id" binding:"required"`
	CheckIn     string `json:"check_in" binding:"required"`
	CheckOut    string `json:"check_out" binding:"required"`
	Guests      int    `json:"guests" binding:"omitempty,min=1,max=20"`
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h BookingsHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkIn, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	cmd := bookingapp.CreateBookingCommand{
		Actor:       actorOf(c),
		HostelID:    domainhostels.ID(req.HostelID),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      guests,
		PhoneNumber: req.PhoneNumber,
		IdemKey:     strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		Now:         time.Now().UTC(),
	}
	booking, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h BookingsHandler) List(c *gin.Context) {
	page, perPage := pageParams(c)
	query := bookingapp.ListMineQuery{
		Actor:   actorOf(c),
		Status:  strings.TrimSpace(c.Query("status")),
		Page:    page,
		PerPage: perPage,
	}
	result, err := queries.Ask[bookingapp.ListMineQuery, dto.BookingPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingsHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{Actor: actorOf(c), BookingID: domainbooking.ID(c.Param("id"))}
	booking, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingsHandler) Cancel(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	cmd := bookingapp.CancelCommand{
		Actor:     actorOf(c),
		BookingID: domainbooking.ID(c.Param("id")),
		Reason:    req.Reason,
		Now:       time.Now().UTC(),
	}
	booking, err := commands.Dispatch[bookingapp.CancelCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingsHandler) UpdateStatus(c *gin.Context) {
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

func (h BookingsHandler) Refund(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	cmd := bookingapp.RefundCommand{
		Actor:     actorOf(c),
		BookingID: domainbooking.ID(c.Param("id")),
		Reason:    req.Reason,
		Now:       time.Now().UTC(),
	}
	refund, err := commands.Dispatch[bookingapp.RefundCommand, dto.Refund](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}

func dispatchStatus(c *gin.Context, bus commands.Bus, status string) (dto.Booking, error) {
	cmd := bookingapp.UpdateStatusCommand{
		Actor:     actorOf(c),
		BookingID: domainbooking.ID(c.Param("id")),
		Status:    status,
		Now:       time.Now().UTC(),
	}
	return commands.Dispatch[bookingapp.UpdateStatusCommand, dto.Booking](c.Request.Context(), bus, cmd)
}

var _ BookingsHTTP = (*BookingsHandler)(nil)
