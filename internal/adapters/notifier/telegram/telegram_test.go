package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"

	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

type sentMessage struct {
	to   string
	text string
}

type fakeBot struct {
	sent []sentMessage
	err  error
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	b.sent = append(b.sent, sentMessage{to: to.Recipient(), text: what.(string)})
	return &tele.Message{}, b.err
}

func TestSender(t *testing.T) {
	bot := &fakeBot{}
	s := NewSender(bot, 1001, nil)

	err := s.Send(context.Background(), dto.PendingNotification{Key: "5", Title: "Rock & Roll <live>", Body: "Starts at 09:00 WIB"})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "1001", bot.sent[0].to)
	assert.Contains(t, bot.sent[0].text, "<b>Rock &amp; Roll &lt;live&gt;</b>")
	assert.Contains(t, bot.sent[0].text, "Starts at 09:00 WIB")
	assert.Equal(t, "telegram", s.Name())
}

func TestLogHookFiltersByLevel(t *testing.T) {
	bot := &fakeBot{}
	hook := LogHook(bot, -100, zapcore.ErrorLevel, types.Nop())

	hook(types.Log{Timestamp: time.Now(), Level: zapcore.InfoLevel, Message: "fine"})
	assert.Empty(t, bot.sent)

	hook(types.Log{Timestamp: time.Now(), Level: zapcore.ErrorLevel, LoggerName: "main.scheduler", Message: "backend down"})
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "-100", bot.sent[0].to)
	assert.Contains(t, bot.sent[0].text, "ERROR")
	assert.Contains(t, bot.sent[0].text, "backend down")

	bot.err = errors.New("flood wait")
	hook(types.Log{Level: zapcore.ErrorLevel, Message: "again"})
	assert.Len(t, bot.sent, 2)
}
