package service

import "context"

// Mail is a rendered, ready-to-send message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
