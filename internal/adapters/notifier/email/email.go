package email

import (
	"context"

	"github.com/vinylhub/eventsync/internal/domain/dto"
)

type mailer interface {
	Send(to, subject, body string) error
}

// Sender mails fired reminders to a fixed address.
type Sender struct {
	mailer mailer
	to     string
}

func NewSender(mailer mailer, to string) *Sender {
	return &Sender{mailer: mailer, to: to}
}

func (s *Sender) Name() string {
	return "email"
}

func (s *Sender) Send(_ context.Context, n dto.PendingNotification) error {
	body := n.Body
	if body == "" {
		body = n.Title
	}
	return s.mailer.Send(s.to, "Reminder: "+n.Title, body)
}
