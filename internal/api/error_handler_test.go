package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

func handleError(t *testing.T, err error) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	return rec.Code, resp.Error
}

func TestHTTPErrorHandler_DomainKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"conflict", domain.ErrWalletTaken, http.StatusConflict},
		{"forbidden", domain.ErrEntityNotOwned, http.StatusForbidden},
		{"unprocessable", domain.ErrPrimaryUndeletable, http.StatusUnprocessableEntity},
		{"bad request", domain.ErrPasswordRequired, http.StatusBadRequest},
		{"not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := handleError(t, tc.err)
			if code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, code)
			}
		})
	}
}

func TestHTTPErrorHandler_UnauthorizedIsOpaque(t *testing.T) {
	// The invalid-credential family must never reveal which factor failed.
	_, msg := handleError(t, domain.ErrUnauthorized)
	if msg != "unauthorized" {
		t.Fatalf("expected opaque message, got %q", msg)
	}
}

func TestHTTPErrorHandler_EchoErrorsPassThrough(t *testing.T) {
	code, msg := handleError(t, echo.NewHTTPError(http.StatusTeapot, "short and stout"))
	if code != http.StatusTeapot || msg != "short and stout" {
		t.Fatalf("unexpected: %d %q", code, msg)
	}
}

func TestHTTPErrorHandler_UnknownErrorsAre500(t *testing.T) {
	code, msg := handleError(t, errors.New("mongo exploded: connection string leaked"))
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != "internal server error" {
		t.Fatalf("internal detail leaked: %q", msg)
	}
}
