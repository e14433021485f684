package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every business-rule failure wraps exactly one of these so the
// HTTP layer can resolve a status code with errors.Is without knowing the
// specific rule that fired. Infrastructure failures never wrap a kind; they
// surface as generic internal errors.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrUnprocessable = errors.New("unprocessable")
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("too many attempts")
)

// Specific business-rule errors. The Unauthorized family deliberately carries
// no detail: the caller must not learn which factor failed.
var (
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrEntityNotFound     = fmt.Errorf("%w: auth entity", ErrNotFound)
	ErrChallengeNotFound  = fmt.Errorf("%w: auth challenge", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: auth session", ErrNotFound)
	ErrIdentifierTaken    = fmt.Errorf("%w: email or username already in use", ErrConflict)
	ErrSessionReplayed    = fmt.Errorf("%w: session checksum already recorded", ErrConflict)
	ErrDuplicatePassword  = fmt.Errorf("%w: password credential already exists", ErrConflict)
	ErrWalletTaken        = fmt.Errorf("%w: wallet address already in use", ErrConflict)
	ErrIdentifierMissing  = fmt.Errorf("%w: email or username required", ErrBadRequest)
	ErrPasswordRequired   = fmt.Errorf("%w: password not provided", ErrBadRequest)
	ErrInvalidCredential  = fmt.Errorf("%w: malformed credential payload", ErrBadRequest)
	ErrEntityNotOwned     = fmt.Errorf("%w: auth entity does not belong to caller", ErrForbidden)
	ErrPrimaryUndeletable = fmt.Errorf("%w: cannot delete primary auth entity", ErrUnprocessable)
	ErrLastCredential     = fmt.Errorf("%w: cannot delete the last auth entity", ErrUnprocessable)
	ErrEmailNotSet        = fmt.Errorf("%w: user has no email address", ErrUnprocessable)
)
