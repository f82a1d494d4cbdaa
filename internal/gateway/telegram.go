package gateway

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadline-buddy/internal/domain"
)

// TelegramSender delivers messages through the Telegram Bot API. Chat ids
// are the decimal Telegram chat id.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, telegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := s.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return domain.IO("send telegram message", ctx.Err())
	case err := <-done:
		if err != nil {
			return domain.IO("send telegram message", err)
		}
		return nil
	}
}

var (
	boldMarkup = regexp.MustCompile("\\*([^*\n]+)\\*")
	codeMarkup = regexp.MustCompile("`([^`\n]+)`")
)

// telegramHTML rewrites the *bold* and `code` chat markup into Telegram HTML.
// Everything else is escaped.
func telegramHTML(text string) string {
	text = html.EscapeString(text)
	text = codeMarkup.ReplaceAllString(text, "<code>$1</code>")
	return boldMarkup.ReplaceAllString(text, "<b>$1</b>")
}
