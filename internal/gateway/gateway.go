// Package gateway delivers text messages to chats.
package gateway

import "context"

// Sender delivers text to a chat. Implementations honor ctx deadlines.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, chatID, text string) error

func (f SenderFunc) Send(ctx context.Context, chatID, text string) error {
	return f(ctx, chatID, text)
}
