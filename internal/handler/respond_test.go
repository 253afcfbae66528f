package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/pantry/internal/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     string
		wantRedirect string
	}{
		{"domain error", apperr.ErrNotAMember, http.StatusForbidden, "NOT_A_MEMBER", ""},
		{"wrapped domain error", apperr.Wrap(apperr.CodeRecommendationUnavailable, "engine down", errors.New("dial")), http.StatusServiceUnavailable, "RECOMMENDATION_UNAVAILABLE", ""},
		{"no active household", apperr.ErrNoActiveHousehold, http.StatusConflict, "NO_ACTIVE_HOUSEHOLD", "/onboarding"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "UNKNOWN", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest("GET", "/", nil), discardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Redirect != tt.wantRedirect {
				t.Errorf("redirect = %q, want %q", body.Redirect, tt.wantRedirect)
			}
			if tt.wantCode == "UNKNOWN" && strings.Contains(body.Error, "disk") {
				t.Errorf("internal error detail leaked: %q", body.Error)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty body", "", "request body is required"},
		{"bad json", "{", "invalid JSON"},
		{"missing field", `{"password":"password123"}`, "email is required"},
		{"bad email", `{"email":"nope","password":"password123"}`, "email must be an email address"},
		{"short password", `{"email":"a@example.com","password":"short"}`, "password must be min 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var dst credentialsRequest
			err := decode(req, &dst)
			if apperr.CodeOf(err) != apperr.CodeInvalidArgument {
				t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@example.com","password":"password123"}`))
	var dst credentialsRequest
	if err := decode(req, &dst); err != nil {
		t.Fatalf("valid body: %v", err)
	}
	if dst.Email != "a@example.com" {
		t.Errorf("email = %q", dst.Email)
	}
}
