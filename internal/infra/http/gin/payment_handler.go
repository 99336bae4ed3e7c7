package ginserver

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	paymentsapp "hostelhunt/internal/app/handlers/payments"
	"hostelhunt/internal/app/queries"
	domainbooking "hostelhunt/internal/domain/booking"
	domainpayments "hostelhunt/internal/domain/payments"
)

const maxCallbackBytes = 64 << 10

type PaymentsHTTP interface {
	STKPush(c *gin.Context)
	Callback(c *gin.Context)
	History(c *gin.Context)
	Status(c *gin.Context)
	ByBooking(c *gin.Context)
}

type PaymentsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type stkPushRequest struct {
	BookingID   string `json:"booking_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,phone"`
}

func (h PaymentsHandler) STKPush(c *gin.Context) {
	var req stkPushRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := paymentsapp.InitiateCommand{
		Actor:       actorOf(c),
		BookingID:   domainbooking.ID(req.BookingID),
		PhoneNumber: req.PhoneNumber,
		IdemKey:     strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		Now:         time.Now().UTC(),
	}
	result, err := commands.Dispatch[paymentsapp.InitiateCommand, *dto.STKPushResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Callback always acknowledges the gateway; failures are logged and the payment
// can still be settled later through a status query.
func (h PaymentsHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err == nil {
		cmd := paymentsapp.CallbackCommand{Payload: body, Now: time.Now().UTC()}
		_, err = commands.Dispatch[paymentsapp.CallbackCommand, paymentsapp.CallbackResult](c.Request.Context(), h.Commands, cmd)
	}
	if err != nil && h.Logger != nil {
		h.Logger.Error("payment callback failed", "error", err, "request_id", c.GetString("request_id"))
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h PaymentsHandler) History(c *gin.Context) {
	page, perPage := pageParams(c)
	query := paymentsapp.HistoryQuery{Actor: actorOf(c), Page: page, PerPage: perPage}
	result, err := queries.Ask[paymentsapp.HistoryQuery, dto.PaymentPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentsHandler) Status(c *gin.Context) {
	cmd := paymentsapp.QueryStatusCommand{
		Actor:     actorOf(c),
		PaymentID: domainpayments.ID(c.Param("id")),
		Now:       time.Now().UTC(),
	}
	payment, err := commands.Dispatch[paymentsapp.QueryStatusCommand, dto.Payment](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h PaymentsHandler) ByBooking(c *gin.Context) {
	query := paymentsapp.BookingPaymentsQuery{Actor: actorOf(c), BookingID: domainbooking.ID(c.Param("id"))}
	items, err := queries.Ask[paymentsapp.BookingPaymentsQuery, []dto.Payment](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

var _ PaymentsHTTP = (*PaymentsHandler)(nil)
