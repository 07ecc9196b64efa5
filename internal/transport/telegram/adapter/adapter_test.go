package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	gone := classify(fmt.Errorf("send: %w", tele.ErrBlockedByUser))
	if !errors.Is(gone, ErrRecipientGone) || !errors.Is(gone, tele.ErrBlockedByUser) {
		t.Fatalf("classify(blocked) = %v, want ErrRecipientGone wrapping the cause", gone)
	}
	other := errors.New("timeout")
	if got := classify(other); got != other {
		t.Fatalf("classify(other) = %v, want unchanged", got)
	}
}

func TestToUpdate(t *testing.T) {
	t.Parallel()

	up, ok := toUpdate(&tele.Message{
		ID:       7,
		ThreadID: 3,
		Text:     "/start",
		Chat:     &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		Sender:   &tele.User{ID: 42, Username: "ada", FirstName: "Ada", LastName: "Lovelace"},
	})
	if !ok || up.Kind != kit.UpdateMessage {
		t.Fatalf("toUpdate() = %+v, %v", up, ok)
	}
	want := kit.Message{ID: 7, ChatID: -100, ThreadID: 3, FromID: 42, FromUsername: "ada", FromName: "Ada Lovelace", Text: "/start", IsGroup: true}
	if *up.Message != want {
		t.Fatalf("message = %+v, want %+v", *up.Message, want)
	}

	if _, ok := toUpdate(&tele.Message{Text: "x"}); ok {
		t.Fatalf("toUpdate(no chat) ok = true")
	}
}

func TestMenuList(t *testing.T) {
	t.Parallel()

	cmds := []kit.BotCommand{
		{Command: "start", Description: "subscribe"},
		{Command: ""},
		{Command: "help"},
		{Command: "long", Description: strings.Repeat("é", 300)},
	}
	list, sum := menuList(cmds)
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[1].Description != "help" {
		t.Fatalf("empty description = %q, want command name", list[1].Description)
	}
	if n := len([]rune(list[2].Description)); n != menuDescMax {
		t.Fatalf("description runes = %d, want %d", n, menuDescMax)
	}
	if _, again := menuList(cmds); again != sum {
		t.Fatalf("hash not stable")
	}
	if _, other := menuList(cmds[:1]); other == sum {
		t.Fatalf("different menus share a hash")
	}
}

func TestDeliverCountsDrops(t *testing.T) {
	t.Parallel()

	a, err := New(Config{Token: "123:abc", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	up := kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{Text: "hi"}}
	a.deliver(up) // stopped: ignored

	out := make(chan kit.Update, 1)
	var send chan<- kit.Update = out
	a.sink.Store(&send)
	a.deliver(up)
	a.deliver(up)
	if len(out) != 1 || a.dropped.Load() != 1 {
		t.Fatalf("queued = %d, dropped = %d, want 1 and 1", len(out), a.dropped.Load())
	}
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() without Start error = %v", err)
	}
}
