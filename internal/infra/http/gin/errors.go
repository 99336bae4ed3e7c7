package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	"hostelhunt/internal/app/middleware"
	"hostelhunt/internal/app/policies"
	authsvc "hostelhunt/internal/app/services/auth"
	"hostelhunt/internal/app/uow"
	domainauth "hostelhunt/internal/domain/auth"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	"hostelhunt/internal/domain/pricing"
	domainreviews "hostelhunt/internal/domain/reviews"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

// errBadRequest marks request decoding failures raised by this package.
var errBadRequest = errors.New("invalid request")

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{
		policies.ErrUnauthenticated,
		authsvc.ErrUnauthenticated,
		authsvc.ErrInvalidCredentials,
		domainauth.ErrTokenInvalid,
		domainauth.ErrSessionNotFound,
	}},
	{http.StatusForbidden, []error{
		policies.ErrForbidden,
		domainuser.ErrInactive,
		domainuser.ErrLandlordRoleRequired,
		domainhostels.ErrNotOwner,
		domainbooking.ErrNotOwner,
		domainreviews.ErrNotAuthor,
	}},
	{http.StatusNotFound, []error{
		domainuser.ErrNotFound,
		domainuser.ErrLandlordNotFound,
		domainhostels.ErrNotFound,
		domainbooking.ErrNotFound,
		domainreviews.ErrNotFound,
		domainpayments.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		domainuser.ErrEmailAlreadyUsed,
		domainuser.ErrLandlordOwnsHostels,
		domainhostels.ErrHasBookings,
		domainbooking.ErrCapacityExceeded,
		domainpayments.ErrPaymentInProgress,
	}},
	{http.StatusBadGateway, []error{
		policies.ErrGatewayUnavailable,
	}},
	{http.StatusServiceUnavailable, []error{
		policies.ErrGatewayNotConfigured,
		hostelsapp.ErrUploaderUnavailable,
		uow.ErrNoUnit,
	}},
	{http.StatusBadRequest, []error{
		errBadRequest,
		middleware.ErrValidation,
		authsvc.ErrPasswordTooShort,
		authsvc.ErrCurrentPassword,
		domainuser.ErrEmailRequired,
		domainuser.ErrInvalidEmail,
		domainuser.ErrInvalidRole,
		domainuser.ErrRoleTransition,
		domainuser.ErrLandlordExists,
		domainuser.ErrBusinessNameRequired,
		domainhostels.ErrInvalidName,
		domainhostels.ErrInvalidLocation,
		domainhostels.ErrInvalidDescription,
		domainhostels.ErrNegativePrice,
		domainhostels.ErrCapacityOutOfRange,
		domainhostels.ErrInvalidRoomType,
		domainhostels.ErrTooManyAmenities,
		domainhostels.ErrTooManyImages,
		domainhostels.ErrInvalidImage,
		domainhostels.ErrInvalidCoordinates,
		hostelsapp.ErrUnsupportedImage,
		hostelsapp.ErrImageTooLarge,
		domainbooking.ErrCheckInNotFuture,
		domainbooking.ErrRefundWindow,
		domainbooking.ErrInvalidGuests,
		domainbooking.ErrInvalidPhone,
		domainbooking.ErrInvalidStatus,
		domainbooking.ErrInvalidState,
		domainbooking.ErrAlreadyPaid,
		domainbooking.ErrClosedToPayment,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrCommentTooLong,
		domainreviews.ErrNotEligible,
		domainreviews.ErrAlreadyReviewed,
		domainpayments.ErrInvalidPhone,
		domainpayments.ErrInvalidCallback,
		domainpayments.ErrInvalidAmount,
		domainpayments.ErrBookingNotPayable,
		domainpayments.ErrNotRefundable,
		daterange.ErrInvalidRange,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		money.ErrNegativeAmount,
		pricing.ErrInvalidNights,
	}},
}

// statusFor maps an error chain onto an HTTP status; unknown errors are 500.
func statusFor(err error) int {
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"message": ...}. Internal failures are logged with the
// request id and answered with a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	if logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id")}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", p.UserID)
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
