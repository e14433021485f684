// Package email holds mail transports. Only the log transport ships today;
// an SMTP transport plugs in behind the same Mailer port.
package email

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/ports"
)

// LogMailer writes outbound mail to the log instead of delivering it. Used in
// development and test environments.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail ports.Mail) error {
	m.log.Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Str("body", mail.Body).
		Msg("outbound mail")
	return nil
}
