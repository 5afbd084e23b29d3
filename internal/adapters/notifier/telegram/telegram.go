package telegram

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"

	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

// Messenger is the part of *tele.Bot the sender uses.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Sender posts fired reminders to a Telegram chat.
type Sender struct {
	bot    Messenger
	chatID int64
	logger *types.Logger
}

func NewSender(bot Messenger, chatID int64, logger *types.Logger) *Sender {
	if logger == nil {
		logger = types.Nop()
	}
	return &Sender{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

func (s *Sender) Name() string {
	return "telegram"
}

func (s *Sender) Send(_ context.Context, n dto.PendingNotification) error {
	_, err := s.bot.Send(tele.ChatID(s.chatID), FormatReminder(n), tele.ModeHTML)
	return err
}

// FormatReminder renders a reminder as a Telegram HTML message.
func FormatReminder(n dto.PendingNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s</b>", escape(n.Title))
	if n.Body != "" {
		fmt.Fprintf(&b, "\n%s", escape(n.Body))
	}
	return b.String()
}

// LogHook returns a log hook that forwards entries at or above level to channelID.
func LogHook(bot Messenger, channelID int64, level zapcore.Level, logger *types.Logger) types.LogHook {
	return func(log types.Log) {
		if log.Level < level {
			return
		}
		text := fmt.Sprintf("<b>%s</b> [%s] %s\n<code>%s</code>",
			strings.ToUpper(log.Level.String()), escape(log.LoggerName), escape(log.Message), escape(log.Caller))
		_, err := bot.Send(tele.ChatID(channelID), text, tele.ModeHTML)
		if err != nil && !strings.Contains(log.Message, "failed to send log to channel") {
			logger.Errorf("failed to send log to channel %d: %v", channelID, err)
		}
	}
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
