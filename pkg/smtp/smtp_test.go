package smtp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSend(t *testing.T) {
	dialer := &recordingDialer{}
	client := NewClient(dialer, "events@vinylhub.test", "vinylhub.test")

	require.NoError(t, client.Send("fan@example.com", "Listening party", "Starts at 09:00 WIB"))
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"fan@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Listening party"}, msg.GetHeader("Subject"))
	id := msg.GetHeader("Message-ID")
	require.Len(t, id, 1)
	assert.Contains(t, id[0], "@vinylhub.test>")

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Starts at 09:00 WIB")
}

func TestSendError(t *testing.T) {
	client := NewClient(&recordingDialer{err: errors.New("connection refused")}, "a@b.c", "b.c")
	err := client.Send("x@y.z", "s", "b")
	assert.ErrorContains(t, err, "connection refused")
}
