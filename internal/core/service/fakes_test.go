package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
)

// In-memory fakes backing the service tests. All of them are mutex-guarded so
// the concurrency tests can hammer them from multiple goroutines.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (user.Email != "" && u.Email == user.Email) || (user.Username != "" && u.Username == user.Username) {
			return nil, domain.ErrIdentifierTaken
		}
	}
	r.seq++
	clone := *user
	clone.ID = "user-" + strconv.Itoa(r.seq)
	clone.CreatedAt = time.Now().UTC()
	r.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) FindByEmailOrUsername(_ context.Context, query string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if query == "" {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.Email == query || u.Username == query {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) SetEmailVerified(_ context.Context, id string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsEmailVerified = verified
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeCredRepo struct {
	mu       sync.Mutex
	entities map[string]*domain.AuthEntity
	seq      int
}

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{entities: make(map[string]*domain.AuthEntity)}
}

func (r *fakeCredRepo) Create(_ context.Context, entity *domain.AuthEntity) (*domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if entity.Wallet != nil && e.Wallet != nil && e.Wallet.WalletAddress == entity.Wallet.WalletAddress {
			return nil, domain.ErrWalletTaken
		}
		if entity.Type == domain.AuthTypePassword && e.UserID == entity.UserID && e.Type == domain.AuthTypePassword {
			return nil, domain.ErrDuplicatePassword
		}
	}
	r.seq++
	clone := *entity
	clone.ID = "auth-" + strconv.Itoa(r.seq)
	clone.CreatedAt = time.Now().UTC()
	r.entities[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeCredRepo) FindByID(_ context.Context, id string) (*domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	out := *e
	return &out, nil
}

func (r *fakeCredRepo) FindByUserAndID(_ context.Context, userID, id string) (*domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok || e.UserID != userID {
		return nil, domain.ErrEntityNotFound
	}
	out := *e
	return &out, nil
}

func (r *fakeCredRepo) FindByUserAndType(_ context.Context, userID string, t domain.AuthType) (*domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.UserID == userID && e.Type == t {
			out := *e
			return &out, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

func (r *fakeCredRepo) FindByWalletAddress(_ context.Context, address string) (*domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.Wallet != nil && e.Wallet.WalletAddress == address {
			out := *e
			return &out, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

func (r *fakeCredRepo) ListForUser(_ context.Context, userID string) ([]domain.AuthEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuthEntity
	for _, e := range r.entities {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeCredRepo) CountForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entities {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeCredRepo) HasPrimary(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.UserID == userID && e.IsPrimary {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCredRepo) ClearPrimary(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.UserID == userID {
			e.IsPrimary = false
		}
	}
	return nil
}

func (r *fakeCredRepo) SetPrimary(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok || e.UserID != userID {
		return domain.ErrEntityNotFound
	}
	e.IsPrimary = true
	return nil
}

func (r *fakeCredRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok || e.UserID != userID {
		return domain.ErrEntityNotFound
	}
	delete(r.entities, id)
	return nil
}

func (r *fakeCredRepo) DeleteAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entities {
		if e.UserID == userID {
			delete(r.entities, id)
		}
	}
	return nil
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	challenges map[string]*domain.AuthChallenge
	seq        int
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[string]*domain.AuthChallenge)}
}

func (r *fakeChallengeRepo) Create(_ context.Context, challenge *domain.AuthChallenge) (*domain.AuthChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := *challenge
	clone.ID = "chal-" + strconv.Itoa(r.seq)
	clone.CreatedAt = time.Now().UTC()
	r.challenges[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeChallengeRepo) FindByID(_ context.Context, id string) (*domain.AuthChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeChallengeRepo) Resolve(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.IsResolved || !now.Before(c.ExpiredAt) {
		return false, nil
	}
	c.IsResolved = true
	return true, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.AuthSession
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.AuthSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.AuthSession) (*domain.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The real store indexes checksums uniquely.
	for _, s := range r.sessions {
		if s.Checksum == session.Checksum {
			return nil, domain.ErrSessionReplayed
		}
	}
	r.seq++
	clone := *session
	clone.ID = "sess-" + strconv.Itoa(r.seq)
	clone.CreatedAt = time.Now().UTC()
	r.sessions[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*domain.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeSessionRepo) DeleteByAuthID(_ context.Context, authID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.AuthID == authID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// fakeTransactor runs fn directly; the fakes have no rollback.
type fakeTransactor struct{}

func (fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLimiter struct {
	mu      sync.Mutex
	allowed bool
	err     error
	calls   int
}

func (l *fakeLimiter) Allow(_ context.Context, _ string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.allowed, l.err
}

type fakeMailSender struct {
	mu    sync.Mutex
	mails []ports.Mail
}

func (m *fakeMailSender) Enqueue(mail ports.Mail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mail)
}

func (m *fakeMailSender) sent() []ports.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Mail, len(m.mails))
	copy(out, m.mails)
	return out
}
