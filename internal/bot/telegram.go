package bot

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deadline-buddy/internal/gateway"
)

// PollTimeout is the long-polling timeout in seconds. The HTTP client used
// by the bot API must allow requests longer than this.
const PollTimeout = 60

// TelegramBot feeds Telegram messages into the Processor.
type TelegramBot struct {
	api       *tgbotapi.BotAPI
	processor *Processor
	sender    gateway.Sender
	timeout   time.Duration
	log       *zap.Logger
}

func NewTelegramBot(api *tgbotapi.BotAPI, processor *Processor, sender gateway.Sender, replyTimeout time.Duration, log *zap.Logger) *TelegramBot {
	if log == nil {
		log = zap.NewNop()
	}
	if replyTimeout <= 0 {
		replyTimeout = 15 * time.Second
	}
	return &TelegramBot{
		api:       api,
		processor: processor,
		sender:    sender,
		timeout:   replyTimeout,
		log:       log,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *TelegramBot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = PollTimeout
	updateConfig.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates", zap.String("account", b.api.Self.UserName))

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return ctx.Err()
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, ok := messageFromUpdate(update)
	if !ok {
		return
	}

	replyCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := b.processor.HandleAndReply(replyCtx, msg, b.sender)
	if err != nil {
		b.log.Error("send reply", zap.String("chat_id", msg.ChatID), zap.Error(err))
		return
	}
	if result.Processed > 0 {
		b.log.Debug("message handled", zap.String("chat_id", msg.ChatID), zap.Int("commands", result.Processed))
	}
}

func messageFromUpdate(update tgbotapi.Update) (Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return Message{}, false
	}
	msg := Message{
		ChatID:     strconv.FormatInt(m.Chat.ID, 10),
		SenderName: "Unknown",
		Body:       m.Text,
	}
	if m.From != nil {
		msg.Sender = strconv.FormatInt(m.From.ID, 10)
		switch {
		case m.From.UserName != "":
			msg.SenderName = m.From.UserName
		case m.From.FirstName != "":
			msg.SenderName = m.From.FirstName
		}
	}
	return msg, true
}
