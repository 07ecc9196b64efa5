// Package adapter connects the bot to Telegram through telebot long polling.
package adapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "noticebot/internal/runtime/supervisor"
	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

const (
	defaultPollTimeout = 10 * time.Second
	dropReportEvery    = 5 * time.Second
	stopWait           = 2 * time.Second
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// Offline skips the getMe call at construction. Used by tests.
	Offline bool
}

// Adapter implements transport.Adapter and transport.CommandMenuUpdater.
type Adapter struct {
	log logx.Logger
	bot *tele.Bot

	// sink is the current update channel; nil while stopped
	sink    atomic.Pointer[chan<- kit.Update]
	dropped atomic.Uint64

	lifeMu sync.Mutex
	sup    *rtsup.Supervisor

	menuMu   sync.Mutex
	menuHash uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		Offline: cfg.Offline,
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{log: log, bot: bot}
	bot.Handle(tele.OnText, func(c tele.Context) error {
		if up, ok := toUpdate(c.Message()); ok {
			a.deliver(up)
		}
		return nil
	})
	return a, nil
}

// toUpdate converts a telebot text message. Messages without a chat are skipped.
func toUpdate(m *tele.Message) (kit.Update, bool) {
	if m == nil || m.Chat == nil {
		return kit.Update{}, false
	}
	msg := &kit.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		Text:     m.Text,
	}
	switch m.Chat.Type {
	case tele.ChatGroup, tele.ChatSuperGroup:
		msg.IsGroup = true
	}
	if u := m.Sender; u != nil {
		msg.FromID = u.ID
		msg.FromUsername = u.Username
		msg.FromName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return kit.Update{Kind: kit.UpdateMessage, Message: msg}, true
}

// deliver never blocks the poller; a full channel counts a drop.
func (a *Adapter) deliver(up kit.Update) {
	p := a.sink.Load()
	if p == nil {
		return
	}
	select {
	case *p <- up:
	default:
		a.dropped.Add(1)
	}
}

// Start begins long polling and forwards text messages to out. Calling it
// while running is a no-op.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	if a.sup != nil {
		return nil
	}
	a.sink.Store(&out)
	sup := rtsup.New(ctx, rtsup.WithLogger(a.log))
	a.sup = sup

	sup.Go0("updates.drop_report", func(c context.Context) {
		t := time.NewTicker(dropReportEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				a.reportDropped(cap(out))
			case <-c.Done():
				a.reportDropped(cap(out))
				return
			}
		}
	})
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	// bot.Start blocks until bot.Stop; a panic inside the poller restarts it
	sup.GoRestart0("telebot.poll", func(context.Context) {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithPublishFirstError(true),
	)
	return nil
}

func (a *Adapter) reportDropped(chanCap int) {
	if n := a.dropped.Swap(0); n > 0 {
		a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", chanCap))
	}
}

// Stop ends polling, waiting at most stopWait or until ctx ends.
func (a *Adapter) Stop(ctx context.Context) error {
	a.lifeMu.Lock()
	sup := a.sup
	a.sup = nil
	a.sink.Store(nil)
	a.lifeMu.Unlock()
	if sup == nil {
		return nil
	}

	sup.Cancel()
	wctx, cancel := context.WithTimeout(ctx, stopWait)
	defer cancel()
	switch err := sup.Wait(wctx); {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.log.Warn("telegram stop timed out", logx.Err(err))
	case err != nil:
		a.log.Debug("telegram stopped with poller error", logx.Err(err))
	default:
		a.log.Info("telegram stopped")
	}
	return nil
}
