package ports

import "context"

// Mail is a single outbound message. Templating and transport are external
// concerns; the core only hands over the rendered fields.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message synchronously.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// MailSender accepts messages for asynchronous delivery. Enqueue never blocks
// the authentication path on the mail transport.
type MailSender interface {
	Enqueue(mail Mail)
}
