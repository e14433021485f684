package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOTPProvider_RoundTrip(t *testing.T) {
	p := NewOTPProvider()

	secret, err := p.GenerateSecret()
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	code, err := p.Code(secret)
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.True(t, p.Verify(code, secret))
	require.False(t, p.Verify("000000", secret))
	require.False(t, p.Verify(code, "JBSWY3DPEHPK3PXP"))
}

func TestOTPProvider_SkewWindow(t *testing.T) {
	p := NewOTPProvider()
	secret, err := p.GenerateSecret()
	require.NoError(t, err)

	base := time.Date(2026, 8, 28, 12, 0, 30, 0, time.UTC)
	p.now = func() time.Time { return base }

	code, err := p.Code(secret)
	require.NoError(t, err)

	// One step either way still verifies; two steps out does not.
	p.now = func() time.Time { return base.Add(otpPeriod * time.Second) }
	require.True(t, p.Verify(code, secret))

	p.now = func() time.Time { return base.Add(3 * otpPeriod * time.Second) }
	require.False(t, p.Verify(code, secret))
}

func TestOTPProvider_SecretsAreUnique(t *testing.T) {
	p := NewOTPProvider()

	a, err := p.GenerateSecret()
	require.NoError(t, err)
	b, err := p.GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
