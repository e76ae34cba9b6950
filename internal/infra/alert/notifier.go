// internal/infra/alert/notifier.go
package alert

import (
	"context"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier pushes operational messages (backfill reports, delivery
// failures, double-post risk warnings) to the operations chat.
type TelegramNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramNotifier(bot *telebot.Bot, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// Notify sends a plain-text message to the operations chat.
func (n *TelegramNotifier) Notify(_ context.Context, text string) error {
	_, err := n.bot.Send(&telebot.Chat{ID: n.chatID}, text)
	return err
}
