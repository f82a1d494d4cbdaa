package webhook

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"deadline-buddy/internal/bot"
)

// wahaEvent is the subset of a WAHA webhook call the bot reads.
type wahaEvent struct {
	Event   string       `json:"event"`
	Session string       `json:"session"`
	Payload *wahaMessage `json:"payload"`
}

type wahaMessage struct {
	ID          string      `json:"id"`
	From        string      `json:"from"`
	FromMe      bool        `json:"fromMe"`
	Participant string      `json:"participant"`
	Body        string      `json:"body"`
	Sender      *wahaSender `json:"sender"`
}

type wahaSender struct {
	Name string `json:"name"`
}

func (m *wahaMessage) toMessage() bot.Message {
	msg := bot.Message{
		ChatID:     m.From,
		Sender:     strings.TrimSuffix(m.From, "@c.us"),
		SenderName: "Unknown",
		Body:       strings.TrimSpace(m.Body),
	}
	if m.Participant != "" {
		msg.Sender = strings.TrimSuffix(m.Participant, "@c.us")
	}
	switch {
	case m.FromMe:
		msg.SenderName = "You"
	case m.Sender != nil && m.Sender.Name != "":
		msg.SenderName = m.Sender.Name
	}
	return msg
}

// Webhook handles WAHA message events. Replies go back through the Sender;
// WAHA always gets a 2xx unless the reply could not be delivered.
func (s *Server) Webhook(ctx *fasthttp.RequestCtx) {
	var event wahaEvent
	if err := json.Unmarshal(ctx.PostBody(), &event); err != nil || event.Event == "" {
		respondSuccess(ctx, http.StatusOK, map[string]string{"message": "No event data"})
		return
	}
	if event.Event != "message" {
		respondSuccess(ctx, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}
	if event.Payload == nil || event.Payload.From == "" || strings.TrimSpace(event.Payload.Body) == "" {
		respondSuccess(ctx, http.StatusOK, map[string]string{"message": "No text message"})
		return
	}

	stdCtx, cancel, log := s.requestContext(ctx)
	defer cancel()

	msg := event.Payload.toMessage()
	result, err := s.deps.Processor.HandleAndReply(stdCtx, msg, s.deps.Sender)
	if result.Processed == 0 {
		respondSuccess(ctx, http.StatusOK, map[string]string{"message": "Not a command"})
		return
	}
	if err != nil {
		log.Error("send reply", zap.String("chat_id", msg.ChatID), zap.Error(err))
		respondError(ctx, err)
		return
	}

	log.Info("commands processed",
		zap.String("chat_id", msg.ChatID),
		zap.String("sender", msg.Sender),
		zap.Int("count", result.Processed),
	)
	respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"message": "Commands processed",
		"count":   result.Processed,
		"sender":  msg.Sender,
	})
}
