package server

import (
	"errors"
	"net/http"
	"strings"

	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrTooManyOffers  = errors.New("too_many_offers")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, requestdomain.ErrNotRequestOwner),
		errors.Is(err, offerdomain.ErrNotOfferOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyOffers):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many offers, slow down",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, requestdomain.ErrInvalidBuyer),
		errors.Is(err, requestdomain.ErrInvalidQuantity),
		errors.Is(err, requestdomain.ErrInvalidPriceCeiling),
		errors.Is(err, requestdomain.ErrInvalidSpecies),
		errors.Is(err, offerdomain.ErrInvalidSeller),
		errors.Is(err, offerdomain.ErrQuantityExceeded),
		errors.Is(err, offerdomain.ErrPriceExceedsCeiling),
		errors.Is(err, offerdomain.ErrInvalidValidityDays),
		errors.Is(err, offerdomain.ErrInvalidDeliveryMode),
		errors.Is(err, offerdomain.ErrInvalidAbattoirFee),
		errors.Is(err, offerdomain.ErrInvalidDistance),
		errors.Is(err, settlementdomain.ErrInvalidAmount),
		errors.Is(err, settlementdomain.ErrInvalidRate),
		errors.Is(err, settlementdomain.ErrInvalidCommissionModel):
		return true
	default:
		return false
	}
}

// State conflicts: the resource exists but its lifecycle no longer
// permits the transition.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, requestdomain.ErrRequestNotOpen),
		errors.Is(err, requestdomain.ErrRequestAlreadyClosed),
		errors.Is(err, offerdomain.ErrOfferExpired),
		errors.Is(err, offerdomain.ErrOfferNotActive):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, requestdomain.ErrRequestNotFound),
		errors.Is(err, offerdomain.ErrOfferNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog feeds the request logger a stable (type, code) pair.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Message
	default:
		return "client", payload.Type
	}
}
