package service

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// otpPeriod matches the 60-second step the email verification codes are
// advertised with.
const otpPeriod = 60

var otpOpts = totp.ValidateOpts{
	Period:    otpPeriod,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// OTPProvider wraps the TOTP primitive used for email verification codes.
// Secrets are per-user and generated at sign-up.
type OTPProvider struct {
	now func() time.Time
}

func NewOTPProvider() *OTPProvider {
	return &OTPProvider{now: time.Now}
}

// GenerateSecret returns a fresh base32-encoded TOTP secret.
func (p *OTPProvider) GenerateSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// Code produces the current 6-digit code for the secret.
func (p *OTPProvider) Code(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, p.now(), otpOpts)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return code, nil
}

// Verify reports whether the code is currently valid for the secret.
func (p *OTPProvider) Verify(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, p.now(), otpOpts)
	return err == nil && ok
}
