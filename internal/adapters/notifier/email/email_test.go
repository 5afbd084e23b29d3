package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylhub/eventsync/internal/domain/dto"
)

type fakeMailer struct {
	to, subject, body string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func TestSender(t *testing.T) {
	m := &fakeMailer{}
	s := NewSender(m, "fan@example.com")

	require.NoError(t, s.Send(context.Background(), dto.PendingNotification{Key: "5", Title: "Listening party"}))
	assert.Equal(t, "fan@example.com", m.to)
	assert.Equal(t, "Reminder: Listening party", m.subject)
	assert.Equal(t, "Listening party", m.body)
}
