package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "noticebot/internal/transport"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// TelegramConfig forwards lines at or above MinLevel (default warn) to the
// operator chat, at most RatePerSec per second.
type TelegramConfig struct {
	Enabled    bool
	ThreadID   int
	MinLevel   string
	RatePerSec int
}

const defaultLogPath = "./noticebot.log"

// Sender is the part of the transport the Telegram sink needs.
type Sender = kit.Sender

// Service owns the log outputs. Loggers obtained from it follow Apply.
type Service struct {
	root   atomic.Pointer[zerolog.Logger]
	sender Sender

	mu   sync.Mutex
	file *os.File
	tg   *telegramSink
}

// New builds the service, applies cfg and returns it with a bound Logger.
func New(cfg Config, sender Sender) (*Service, Logger) {
	s := &Service{sender: sender}
	s.tg = newTelegramSink(sender, cfg.Telegram.ThreadID)
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	if zl := s.root.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// SetTelegramTarget sets the operator chat. chatID 0 disables forwarding;
// threadID 0 keeps the configured thread.
func (s *Service) SetTelegramTarget(chatID int64, threadID int) {
	s.tg.setTarget(chatID, threadID)
}

// Apply rebuilds the outputs from cfg. Safe for concurrent use.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	var outs []io.Writer
	if cfg.Console {
		outs = append(outs, consoleWriter(os.Stdout))
	}
	if cfg.File.Enabled {
		if f, err := openLogFile(cfg.File.Path); err != nil {
			fmt.Fprintf(os.Stderr, "logx: %v\n", err)
		} else {
			s.file = f
			outs = append(outs, zerolog.SyncWriter(f))
		}
	}
	s.tg.configure(cfg.Telegram)
	if cfg.Telegram.Enabled {
		s.tg.start()
		outs = append(outs, s.tg)
		if !s.tg.hasTarget() {
			fmt.Fprintln(os.Stderr, "logx: telegram logging enabled but telegram.group_log is not set")
		}
	}
	if len(outs) == 0 {
		outs = append(outs, consoleWriter(os.Stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(outs...)).
		Level(parseLevel(cfg.Level, LevelInfo)).
		With().Timestamp().Logger()
	s.root.Store(&zl)
}

func openLogFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultLogPath
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return f, nil
}

// Close stops the Telegram sink and closes the log file.
func (s *Service) Close() error {
	s.tg.stop()

	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

// telegramSink is a zerolog.LevelWriter that queues lines for the operator
// chat. It never blocks the caller.
type telegramSink struct {
	sender Sender
	queue  chan telegramLine

	mu       sync.Mutex
	chatID   int64
	threadID int
	minLevel Level
	limiter  *rate.Limiter

	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type telegramLine struct {
	to   kit.ChatTarget
	text string
}

func newTelegramSink(sender Sender, threadID int) *telegramSink {
	return &telegramSink{
		sender:   sender,
		queue:    make(chan telegramLine, 256),
		threadID: threadID,
		minLevel: LevelWarn,
		limiter:  rate.NewLimiter(1, 1),
	}
}

func (t *telegramSink) configure(cfg TelegramConfig) {
	rps := max(1, cfg.RatePerSec)
	t.mu.Lock()
	t.minLevel = parseLevel(cfg.MinLevel, LevelWarn)
	t.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	if cfg.ThreadID != 0 {
		t.threadID = cfg.ThreadID
	}
	t.mu.Unlock()
}

func (t *telegramSink) setTarget(chatID int64, threadID int) {
	t.mu.Lock()
	t.chatID = chatID
	if threadID != 0 {
		t.threadID = threadID
	}
	t.mu.Unlock()
}

func (t *telegramSink) hasTarget() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chatID != 0
}

func (t *telegramSink) start() {
	t.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		t.mu.Lock()
		t.cancel = cancel
		t.mu.Unlock()
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.run(ctx)
		}()
	})
}

func (t *telegramSink) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *telegramSink) run(ctx context.Context) {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
	for {
		select {
		case <-ctx.Done():
			return
		case ln := <-t.queue:
			if t.sender != nil {
				_, _ = t.sender.SendText(ctx, ln.to, ln.text, opt)
			}
		}
	}
}

func (t *telegramSink) Write(p []byte) (int, error) { return t.WriteLevel(LevelInfo, p) }

func (t *telegramSink) WriteLevel(level Level, p []byte) (int, error) {
	t.mu.Lock()
	to := kit.ChatTarget{ChatID: t.chatID, ThreadID: t.threadID}
	ok := to.ChatID != 0 && t.sender != nil && level >= t.minLevel && t.limiter.Allow()
	t.mu.Unlock()
	if !ok {
		return len(p), nil
	}
	if text := formatTelegramLine(p); text != "" {
		select {
		case t.queue <- telegramLine{to: to, text: text}:
		default:
		}
	}
	return len(p), nil
}
