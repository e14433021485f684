package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

type stubValidator struct {
	user    *domain.User
	session *domain.AuthSession
	err     error
	token   string
}

func (v *stubValidator) Validate(_ context.Context, token string) (*domain.User, *domain.AuthSession, error) {
	v.token = token
	if v.err != nil {
		return nil, nil, v.err
	}
	return v.user, v.session, nil
}

func TestAuth_InjectsIdentity(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	v := &stubValidator{
		user:    &domain.User{ID: "user-1"},
		session: &domain.AuthSession{ID: "sess-1", SessionType: domain.SessionTypeAuth},
	}

	handler := Auth(v)(func(c echo.Context) error {
		user, _ := c.Get(ContextUser).(*domain.User)
		session, _ := c.Get(ContextSession).(*domain.AuthSession)
		if user == nil || user.ID != "user-1" {
			t.Fatalf("user not injected: %+v", user)
		}
		if session == nil || session.ID != "sess-1" {
			t.Fatalf("session not injected: %+v", session)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if v.token != "some-token" {
		t.Fatalf("validator saw token %q", v.token)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Auth(&stubValidator{})(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	err := handler(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	for _, header := range []string{"some-token", "Basic abc", "Bearer"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		c := e.NewContext(req, httptest.NewRecorder())

		handler := Auth(&stubValidator{})(func(c echo.Context) error {
			t.Fatalf("should not reach next handler for %q", header)
			return nil
		})

		err := handler(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %v", header, err)
		}
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	c := e.NewContext(req, httptest.NewRecorder())

	v := &stubValidator{err: domain.ErrUnauthorized}
	handler := Auth(v)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	err := handler(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
