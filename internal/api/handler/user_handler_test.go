package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

func TestUserHandler_ValidateUsername(t *testing.T) {
	stub := &stubBroker{
		t: t,
		checkIdentifierFn: func(_ context.Context, query string) error {
			if query == "taken" {
				return domain.ErrIdentifierTaken
			}
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/", "")
	c.SetPath("/api/user/validate/username/:query")
	c.SetParamNames("query")
	c.SetParamValues("fresh")

	if err := h.ValidateUsername(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(t, http.MethodPost, "/", "")
	c.SetPath("/api/user/validate/username/:query")
	c.SetParamNames("query")
	c.SetParamValues("taken")

	// The error handler maps Conflict kinds to 409; the handler itself just
	// propagates.
	if err := h.ValidateUsername(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected identifier-taken error, got %v", err)
	}
}

func TestUserHandler_ValidateWalletAddress(t *testing.T) {
	stub := &stubBroker{
		t: t,
		checkWalletFn: func(_ context.Context, address string) error {
			if address == "0xTaken" {
				return domain.ErrWalletTaken
			}
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/", "")
	c.SetPath("/api/user/validate/wallet-address/:query")
	c.SetParamNames("query")
	c.SetParamValues("0xFresh")

	if err := h.ValidateWalletAddress(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(t, http.MethodPost, "/", "")
	c.SetPath("/api/user/validate/wallet-address/:query")
	c.SetParamNames("query")
	c.SetParamValues("0xTaken")

	if err := h.ValidateWalletAddress(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected wallet-taken error, got %v", err)
	}
}
