package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

type credFixture struct {
	creds      *fakeCredRepo
	sessions   *fakeSessionRepo
	challenges *fakeChallengeRepo
	svc        *CredentialService
	chalSvc    *ChallengeService
}

func newCredFixture(t *testing.T) *credFixture {
	t.Helper()
	creds := newFakeCredRepo()
	sessions := newFakeSessionRepo()
	challenges := newFakeChallengeRepo()
	chalSvc := newChallengeServiceForTest(challenges, time.Now().UTC())
	svc := NewCredentialService(creds, sessions, chalSvc, NewBCryptHasher(), fakeTransactor{}, zerolog.Nop())
	return &credFixture{creds: creds, sessions: sessions, challenges: challenges, svc: svc, chalSvc: chalSvc}
}

func TestCredentialService_CreatePassword(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	entity, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)
	require.Equal(t, domain.AuthTypePassword, entity.Type)
	require.True(t, entity.IsPrimary, "first entity becomes primary")
	require.NotNil(t, entity.Password)
	require.NotEqual(t, "hunter2!", entity.Password.Digest)

	_, err = f.svc.CreatePassword(ctx, "user-1", "another")
	require.ErrorIs(t, err, domain.ErrDuplicatePassword)

	_, err = f.svc.CreatePassword(ctx, "user-2", "")
	require.ErrorIs(t, err, domain.ErrPasswordRequired)
}

func TestCredentialService_CreateWallet(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	// First credential so the wallet is not primary.
	_, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)

	claimed := newEVMKey(t)
	chal, err := f.chalSvc.Issue(ctx, claimed.address())
	require.NoError(t, err)

	// The challenge is signed by a different key than the claimed address.
	impostor := newEVMKey(t)
	_, err = f.svc.CreateWallet(ctx, "user-1", domain.AuthTypeEVMWallet, claimed.address(), chal.ID, impostor.sign(t, chal.Message))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCredentialService_CreateWallet_FullFlow(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)

	key := newEVMKey(t)
	addr := key.address()

	chal, err := f.chalSvc.Issue(ctx, addr)
	require.NoError(t, err)

	entity, err := f.svc.CreateWallet(ctx, "user-1", domain.AuthTypeEVMWallet, addr, chal.ID, key.sign(t, chal.Message))
	require.NoError(t, err)
	require.Equal(t, domain.AuthTypeEVMWallet, entity.Type)
	require.False(t, entity.IsPrimary, "wallet connected later never steals primary")
	require.Equal(t, addr, entity.Wallet.WalletAddress)

	// The challenge is burned; replaying the same signed payload fails.
	_, err = f.svc.CreateWallet(ctx, "user-2", domain.AuthTypeEVMWallet, addr, chal.ID, key.sign(t, chal.Message))
	require.Error(t, err)
}

func TestCredentialService_CreateWallet_TakenAddressBeatsChallenge(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	key := newEVMKey(t)
	addr := key.address()

	_, err := f.svc.CreateWalletTrusted(ctx, "user-1", domain.AuthTypeEVMWallet, addr)
	require.NoError(t, err)

	chal, err := f.chalSvc.Issue(ctx, addr)
	require.NoError(t, err)

	// Conflict reported before any signature work; challenge stays open.
	_, err = f.svc.CreateWallet(ctx, "user-2", domain.AuthTypeEVMWallet, addr, chal.ID, "0xjunk")
	require.ErrorIs(t, err, domain.ErrWalletTaken)

	stored, err := f.challenges.FindByID(ctx, chal.ID)
	require.NoError(t, err)
	require.False(t, stored.IsResolved)
}

func TestCredentialService_SetPrimary(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)
	second, err := f.svc.CreateWalletTrusted(ctx, "user-1", domain.AuthTypeSolanaWallet, "SoLAddr111")
	require.NoError(t, err)
	require.False(t, second.IsPrimary)

	promoted, err := f.svc.SetPrimary(ctx, "user-1", second.ID)
	require.NoError(t, err)
	require.True(t, promoted.IsPrimary)

	demoted, err := f.creds.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, demoted.IsPrimary, "old primary is cleared")

	// Foreign entity cannot be promoted.
	_, err = f.svc.SetPrimary(ctx, "user-2", second.ID)
	require.ErrorIs(t, err, domain.ErrEntityNotOwned)
}

func TestCredentialService_Delete(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	primary, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)

	// The last entity cannot be deleted, primary or not.
	err = f.svc.Delete(ctx, "user-1", primary.ID)
	require.ErrorIs(t, err, domain.ErrPrimaryUndeletable)

	wallet, err := f.svc.CreateWalletTrusted(ctx, "user-1", domain.AuthTypeEVMWallet, "0x00000000000000000000000000000000DeaDBeef")
	require.NoError(t, err)

	// Sessions anchored to the wallet die with it.
	_, err = f.sessions.Create(ctx, &domain.AuthSession{
		UserID:      "user-1",
		AuthID:      wallet.ID,
		SessionType: domain.SessionTypeAuth,
		Checksum:    "c1",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "user-1", wallet.ID))
	require.Zero(t, f.sessions.count(), "sessions of the deleted entity are revoked")

	_, err = f.creds.FindByID(ctx, wallet.ID)
	require.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestCredentialService_Delete_PrimaryProtected(t *testing.T) {
	f := newCredFixture(t)
	ctx := context.Background()

	primary, err := f.svc.CreatePassword(ctx, "user-1", "hunter2!")
	require.NoError(t, err)
	_, err = f.svc.CreateWalletTrusted(ctx, "user-1", domain.AuthTypeEVMWallet, "0x00000000000000000000000000000000DeaDBeef")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, "user-1", primary.ID)
	require.ErrorIs(t, err, domain.ErrPrimaryUndeletable)
}
