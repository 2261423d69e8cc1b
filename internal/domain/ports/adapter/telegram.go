package adapter

import "context"

// MessengerBot is the outbound messaging capability: deliver a text/markup
// message to a user-identified conversation.
type MessengerBot interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
