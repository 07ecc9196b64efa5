package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"noticebot/internal/services/registrar"
	"noticebot/internal/task/scheduler"
	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

type sent struct {
	chat int64
	text string
	mode string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	ch   chan sent
}

func newFakeSender() *fakeSender { return &fakeSender{ch: make(chan sent, 16)} }

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	s := sent{chat: to.ChatID, text: text}
	if opt != nil {
		s.mode = opt.ParseMode
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, s)
	f.mu.Unlock()
	f.ch <- s
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeSender) next(t *testing.T) sent {
	t.Helper()
	select {
	case s := <-f.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
		return sent{}
	}
}

type fakeRegistrar struct {
	mu   sync.Mutex
	regs []registrar.Registration
	seen map[int64]bool
	err  error
}

func (f *fakeRegistrar) Register(_ context.Context, reg registrar.Registration) (registrar.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return registrar.Result{}, f.err
	}
	f.regs = append(f.regs, reg)
	if f.seen[reg.RecipientID] {
		return registrar.Result{Outcome: registrar.AlreadySubscribed}, nil
	}
	f.seen[reg.RecipientID] = true
	return registrar.Result{Outcome: registrar.Registered}, nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	triggers int
}

func (f *fakeScheduler) Trigger() {
	f.mu.Lock()
	f.triggers++
	f.mu.Unlock()
}

func (f *fakeScheduler) State() scheduler.State { return scheduler.Idle }

type fakeStatus struct{}

func (fakeStatus) Status(context.Context) (Status, error) {
	return Status{Date: "2024-06-01", Subscribers: 3, Eligible: 2, Archived: 10, ArchivedToday: 1}, nil
}

func startManager(t *testing.T, reg *fakeRegistrar, sch *fakeScheduler) (*fakeSender, chan<- kit.Update) {
	t.Helper()
	snd := newFakeSender()
	m := NewCommandManager(logx.Nop(), snd, []int64{1})
	m.SetRegistry(BotCommands(Services{Registrar: reg, Scheduler: sch, Status: fakeStatus{}}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 8)
	done := make(chan struct{})
	go func() {
		_ = m.DispatchLoop(ctx, updates)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return snd, updates
}

func message(from int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ChatID:       from,
		FromID:       from,
		FromName:     "Ada Lovelace",
		FromUsername: "ada",
		Text:         text,
	}}
}

func TestStartRegistersAndRepliesWhenAlreadySubscribed(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{seen: map[int64]bool{}}
	snd, updates := startManager(t, reg, &fakeScheduler{})

	updates <- message(42, "/start")
	updates <- message(42, "/subscribe@NoticeBot")
	got := snd.next(t)
	if got.chat != 42 || got.text != msgAlreadySubscribed {
		t.Fatalf("reply = %+v, want already subscribed to 42", got)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.regs) != 2 {
		t.Fatalf("registrations = %d, want 2", len(reg.regs))
	}
	r := reg.regs[0]
	if r.RecipientID != 42 || r.DisplayName != "Ada Lovelace" || r.Handle != "@ada" {
		t.Fatalf("registration = %+v", r)
	}
}

func TestStartFailureReplies(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{seen: map[int64]bool{}, err: errors.New("disk")}
	snd, updates := startManager(t, reg, &fakeScheduler{})

	updates <- message(5, "/start")
	if got := snd.next(t); got.text != msgSubscribeFailed {
		t.Fatalf("reply = %q, want failure text", got.text)
	}
}

func TestOwnerOnlyCommands(t *testing.T) {
	t.Parallel()
	sch := &fakeScheduler{}
	snd, updates := startManager(t, &fakeRegistrar{seen: map[int64]bool{}}, sch)

	updates <- message(99, "/fetch")
	if got := snd.next(t); got.text != "unauthorized" {
		t.Fatalf("reply = %q, want unauthorized", got.text)
	}

	updates <- message(1, "/poll")
	if got := snd.next(t); !strings.Contains(got.text, "queued") {
		t.Fatalf("reply = %q, want queued", got.text)
	}
	sch.mu.Lock()
	if sch.triggers != 1 {
		t.Fatalf("triggers = %d, want 1", sch.triggers)
	}
	sch.mu.Unlock()

	updates <- message(1, "/status")
	got := snd.next(t)
	if got.mode != "HTML" || !strings.Contains(got.text, "Subscribers: 3 (2 eligible today)") {
		t.Fatalf("status reply = %+v", got)
	}
}

func TestUnknownAndPlainText(t *testing.T) {
	t.Parallel()
	snd, updates := startManager(t, &fakeRegistrar{seen: map[int64]bool{}}, &fakeScheduler{})

	updates <- message(7, "hello there")
	updates <- message(7, "/nope")
	if got := snd.next(t); !strings.HasPrefix(got.text, "Unknown command") {
		t.Fatalf("reply = %q, want unknown-command hint", got.text)
	}
	snd.mu.Lock()
	defer snd.mu.Unlock()
	if len(snd.msgs) != 1 {
		t.Fatalf("replies = %d, want 1 (plain text ignored)", len(snd.msgs))
	}
}

func TestHelpHidesOwnerCommands(t *testing.T) {
	t.Parallel()
	m := NewCommandManager(logx.Nop(), newFakeSender(), []int64{1})
	m.SetRegistry(BotCommands(Services{}), nil)

	public := m.helpText(false)
	if strings.Contains(public, "/status") || !strings.Contains(public, "/start") {
		t.Fatalf("public help = %q", public)
	}
	if strings.Contains(public, "/subscribe") {
		t.Fatalf("hidden command listed: %q", public)
	}
	if owner := m.helpText(true); !strings.Contains(owner, "/status") {
		t.Fatalf("owner help missing /status: %q", owner)
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		word string
		args int
		ok   bool
	}{
		{in: "/start", word: "start", ok: true},
		{in: "  /Status@MyBot  now ", word: "status", args: 1, ok: true},
		{in: "start", ok: false},
		{in: "/", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		word, args, ok := parseCommand(tt.in)
		if ok != tt.ok || word != tt.word || len(args) != tt.args {
			t.Fatalf("parseCommand(%q) = %q, %v, %v", tt.in, word, args, ok)
		}
	}
}

func TestCommandName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Start":        "start",
		"run-now":      "run_now",
		"9lives":       "cmd_9lives",
		"  ":           "",
		"a__b":         "a_b",
		"status check": "status_check",
		"/menu!":       "menu",
	}
	for in, want := range tests {
		if got := commandName(in); got != want {
			t.Fatalf("commandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildMenuOrdersPublicFirst(t *testing.T) {
	t.Parallel()
	cmds := BotCommands(Services{})
	ptrs := make([]*Command, len(cmds))
	for i := range cmds {
		ptrs[i] = &cmds[i]
	}
	menu := buildMenu(ptrs)
	if len(menu) != 3 {
		t.Fatalf("menu = %+v, want 3 visible commands", menu)
	}
	if menu[0].Command != "start" || !strings.HasPrefix(menu[1].Description, "🔒") {
		t.Fatalf("menu order = %+v", menu)
	}
}
