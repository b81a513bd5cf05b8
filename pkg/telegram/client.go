// Package telegram delivers pipeline run summaries and failure alerts to a chat.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier posts one pre-formatted Markdown message.
type Notifier interface {
	SendMessage(text string) error
}

// botNotifier posts to a single chat through the Bot API.
type botNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient authenticates the bot token and returns a Notifier bound to chatID.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &botNotifier{bot: bot, chatID: chatID}, nil
}

// SendMessage posts text as legacy Markdown without link previews.
func (n *botNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", n.chatID, err)
	}
	return nil
}

// SendAll posts the parts of a split summary in order, stopping at the first failure.
func SendAll(n Notifier, messages []string) error {
	for i, m := range messages {
		if err := n.SendMessage(m); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(messages), err)
		}
	}
	return nil
}
