package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondServiceError(c, err)

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec, envelope
}

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errs.Validation("email", "email is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("ctx: %w", errs.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthenticated", errs.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", errs.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"session not found", fmt.Errorf("session x: %w", errs.ErrSessionNotFound), http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"not found", errs.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already exists", errs.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"business rule", &errs.BusinessRuleError{Index: 2, Field: "origin", Message: "bad origin"}, http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION"},
		{"upstream timeout", fmt.Errorf("slow: %w", errs.ErrUpstreamTimeout), http.StatusGatewayTimeout, "AI_TIMEOUT"},
		{"upstream", &errs.UpstreamError{StatusCode: 500, Body: "boom"}, http.StatusBadGateway, "AI_SERVICE_ERROR"},
		{"persistence", fmt.Errorf("db: %w", errs.ErrPersistence), http.StatusInternalServerError, "PERSISTENCE_ERROR"},
		{"unknown", errors.New("surprise"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, envelope := respond(t, tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code: want=%q got=%q", tc.wantCode, envelope.Error.Code)
			}
		})
	}
}

func TestRespondServiceErrorValidationCarriesFieldDetails(t *testing.T) {
	err := &errs.ValidationError{Fields: []errs.FieldError{
		{Field: "source_text", Message: "too short"},
		{Field: "max_proposals", Message: "out of range"},
	}}
	rec, envelope := respond(t, err)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	details, ok := envelope.Error.Details.([]interface{})
	if !ok || len(details) != 2 {
		t.Fatalf("details: %#v", envelope.Error.Details)
	}
	first, _ := details[0].(map[string]interface{})
	if first["field"] != "source_text" {
		t.Fatalf("first detail: %#v", first)
	}
}

func TestRespondServiceErrorBusinessRuleCarriesIndexAndField(t *testing.T) {
	_, envelope := respond(t, &errs.BusinessRuleError{Index: 3, Field: "generation_session_id", Message: "missing session"})
	details, ok := envelope.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details: %#v", envelope.Error.Details)
	}
	if details["index"] != float64(3) || details["field"] != "generation_session_id" {
		t.Fatalf("details: %#v", details)
	}
	if envelope.Error.Message != "missing session" {
		t.Fatalf("message: %q", envelope.Error.Message)
	}
}

func TestRespondServiceErrorHidesInternalDetail(t *testing.T) {
	_, envelope := respond(t, errors.New("pq: password authentication failed for user"))
	if envelope.Error.Message != "an unexpected error occurred" {
		t.Fatalf("internal detail leaked: %q", envelope.Error.Message)
	}
}
