package communication

import (
	"context"
	"errors"
	"net/mail"
)

// Message is a plain outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return errors.New("invalid recipient " + to)
		}
	}
	if m.Subject == "" {
		return errors.New("message has no subject")
	}
	return nil
}

// Mailer delivers messages through some transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
