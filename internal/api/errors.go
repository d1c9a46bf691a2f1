package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/service/auth"
	"github.com/mnemolabs/mnemo-api/internal/service/scheduler"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, scheduler.ErrCardStateNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// State conflicts
	case errors.Is(err, domain.ErrCardSuspended),
		errors.Is(err, domain.ErrCardNotSuspended):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, scheduler.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Corrupt stored state is isolated per card and surfaced distinctly
	// so operators can find the row.
	case domain.IsInvariantViolation(err):
		return http.StatusUnprocessableEntity

	// Retryable infrastructure failures; no partial write has happened.
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	// Special case: an empty queue is a normal terminal result
	case errors.Is(err, scheduler.ErrNoCardsDue):
		return http.StatusNoContent

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for common
// error types.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, scheduler.ErrCardStateNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, domain.ErrCardSuspended):
		return "Card is suspended"

	case errors.Is(err, domain.ErrCardNotSuspended):
		return "Card is not suspended"

	case errors.Is(err, scheduler.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidRating):
		return "Invalid rating"

	case errors.Is(err, domain.ErrValidation):
		return "Validation error"

	case domain.IsInvariantViolation(err):
		return "Card state is corrupt and was quarantined"

	case errors.Is(err, store.ErrUnavailable):
		return "Service temporarily unavailable, please retry"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a user-friendly
// message without echoing field values back.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'RateCardRequest.Rating' Error:Field validation
		// for 'Rating' failed on the 'oneof' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "invalid identifier format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
