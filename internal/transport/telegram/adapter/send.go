package adapter

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	kit "noticebot/internal/transport"
)

// ErrRecipientGone means the chat can no longer receive messages from the bot.
var ErrRecipientGone = errors.New("recipient unavailable")

var goneErrors = []error{
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrChatNotFound,
	tele.ErrKickedFromGroup,
}

// classify tags errors that will not go away on retry with ErrRecipientGone.
func classify(err error) error {
	for _, gone := range goneErrors {
		if errors.Is(err, gone) {
			return errors.Join(ErrRecipientGone, err)
		}
	}
	return err
}

// SendText sends text in chunks under the Telegram size limit. The ref
// points at the first chunk. A failed chunk stops the rest.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	var o kit.SendOptions
	if opt != nil {
		o = *opt
	}
	recipient := &tele.Chat{ID: to.ChatID}
	sendOpt := &tele.SendOptions{
		ParseMode:             tele.ParseMode(o.ParseMode),
		DisableWebPagePreview: o.DisablePreview,
		ThreadID:              to.ThreadID,
	}

	ref := kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID}
	for i, chunk := range splitText(text, textLimit, o.ParseMode) {
		if err := ctx.Err(); err != nil {
			return ref, err
		}
		sent, err := a.bot.Send(recipient, chunk, sendOpt)
		if err != nil {
			return ref, classify(err)
		}
		if i == 0 {
			ref.MessageID = sent.ID
		}
	}
	return ref, nil
}
