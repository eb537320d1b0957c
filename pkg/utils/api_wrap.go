package utils

import (
	"errors"
	"github.com/gin-gonic/gin"
	"log"
	"net/http"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// HandleServiceError maps the error taxonomy onto HTTP statuses:
// rejections are 422 with the structured reason, conflicts 409,
// retryables 503 (so upstream retry loops keep going), the rest 500.
func HandleServiceError(c *gin.Context, err error) {
	if reason, ok := RejectReason(err); ok {
		RespondError(c, http.StatusUnprocessableEntity, reason)
		return
	}

	switch {
	case errors.Is(err, ErrListingNotFound):
		RespondError(c, http.StatusNotFound, "Listing not found")
	case errors.Is(err, ErrPackageNotFound):
		RespondError(c, http.StatusNotFound, "Package not found")
	case errors.Is(err, ErrPromotionNotFound):
		RespondError(c, http.StatusNotFound, "Promotion not found")
	case errors.Is(err, ErrNotListingOwner):
		RespondError(c, http.StatusForbidden, "You do not own this listing")
	case errors.Is(err, ErrUserBlocked):
		RespondError(c, http.StatusForbidden, "Account is blocked from purchasing promotions")
	case errors.Is(err, ErrConflict):
		RespondError(c, http.StatusConflict, "Conflicting update, please retry")
	case IsRetryable(err):
		log.Printf("Retryable error: %v", err)
		RespondError(c, http.StatusServiceUnavailable, "Temporary failure, please retry")
	case errors.Is(err, ErrDatabaseError):
		log.Printf("Database error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
