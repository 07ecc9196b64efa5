// Package transport holds the chat-platform neutral types shared by the
// adapter, the router and the services that send messages.
package transport

import "context"

type UpdateKind string

const UpdateMessage UpdateKind = "message"

// Update is one inbound event. Only text messages are delivered today.
type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID       int
	ChatID   int64
	ThreadID int // forum topic, 0 outside topics

	FromID       int64
	FromUsername string
	FromName     string

	Text    string
	IsGroup bool
}

// ChatTarget addresses a chat, optionally a topic inside it.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers one text message. Any non-nil error is a delivery failure.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Adapter is a Sender that also produces updates until stopped.
type Adapter interface {
	Sender
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
}

type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish the
// command list to the client menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
