package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
)

type APIError struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: message,
			Code:    code,
			Details: details,
		},
	})
}

// RespondServiceError maps each error kind to its transport status exactly
// once. Unrecognized errors become an opaque 500; no internal detail leaks.
func RespondServiceError(c *gin.Context, err error) {
	var validationErr *errs.ValidationError
	if errors.As(err, &validationErr) {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation error", validationErr.Fields)
		return
	}

	var ruleErr *errs.BusinessRuleError
	if errors.As(err, &ruleErr) {
		RespondError(c, http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION", ruleErr.Message, gin.H{
			"index": ruleErr.Index,
			"field": ruleErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, errs.ErrUnauthenticated):
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid credentials", nil)
	case errors.Is(err, errs.ErrForbidden):
		RespondError(c, http.StatusForbidden, "FORBIDDEN", "resource does not belong to caller", nil)
	case errors.Is(err, errs.ErrSessionNotFound):
		RespondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "generation session not found or not accessible", nil)
	case errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, errs.ErrAlreadyExists):
		RespondError(c, http.StatusConflict, "ALREADY_EXISTS", "resource already exists", nil)
	case errors.Is(err, errs.ErrBusinessRule):
		RespondError(c, http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION", err.Error(), nil)
	case errors.Is(err, errs.ErrUpstreamTimeout):
		RespondError(c, http.StatusGatewayTimeout, "AI_TIMEOUT", "AI service did not respond in time", nil)
	case errors.Is(err, errs.ErrUpstream):
		RespondError(c, http.StatusBadGateway, "AI_SERVICE_ERROR", "AI service temporarily unavailable", nil)
	case errors.Is(err, errs.ErrPersistence):
		RespondError(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", "datastore operation failed", nil)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", nil)
	}
}
