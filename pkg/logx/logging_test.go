package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	kit "noticebot/internal/transport"
)

func TestFormatTelegramLine(t *testing.T) {
	t.Parallel()

	line := []byte(`{"level":"warn","time":"2024-06-01T10:00:00Z","message":"cycle <failed>","comp":"poll","err":"boom"}` + "\n")
	got := formatTelegramLine(line)
	want := "<b>[WARN] cycle &lt;failed&gt;</b>\n<code>comp=poll</code>\n<code>err=boom</code>"
	if got != want {
		t.Fatalf("formatTelegramLine() = %q, want %q", got, want)
	}

	raw := formatTelegramLine([]byte("  not <json>  "))
	if raw != "not &lt;json&gt;" {
		t.Fatalf("formatTelegramLine(raw) = %q, want %q", raw, "not &lt;json&gt;")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"":        LevelInfo,
		"DEBUG":   LevelDebug,
		"warning": LevelWarn,
		" error ": LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFieldsAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))
	log.Debug("hidden")
	log.Warn("visible", Int("n", 3), Err(errors.New("bad")))

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %s", out)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, out)
	}
	if m["comp"] != "test" || m["message"] != "visible" || m["n"] != float64(3) {
		t.Fatalf("unexpected fields: %v", m)
	}
	if _, ok := m["caller"]; !ok {
		t.Fatalf("caller missing: %v", m)
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero Logger IsZero() = false")
	}
	l.Info("no panic")
	if Nop().IsZero() {
		t.Fatalf("Nop().IsZero() = true")
	}
}

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	to    []kit.ChatTarget
}

func (r *recordingSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.to = append(r.to, to)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func TestServiceFileAndTelegramSinks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.log")
	snd := &recordingSender{}
	svc, log := New(Config{
		Level:    "debug",
		File:     FileConfig{Enabled: true, Path: path},
		Telegram: TelegramConfig{Enabled: true, ThreadID: 9, RatePerSec: 100},
	}, snd)
	svc.SetTelegramTarget(-100, 0)

	log.Info("quiet")
	log.Warn("loud", String("comp", "poll"))

	deadline := time.Now().Add(2 * time.Second)
	for snd.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	snd.mu.Lock()
	defer snd.mu.Unlock()
	if len(snd.texts) != 1 || !strings.Contains(snd.texts[0], "[WARN] loud") {
		t.Fatalf("telegram texts = %q, want one warning", snd.texts)
	}
	if snd.to[0] != (kit.ChatTarget{ChatID: -100, ThreadID: 9}) {
		t.Fatalf("telegram target = %+v", snd.to[0])
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"message":"quiet"`) || !strings.Contains(string(b), `"message":"loud"`) {
		t.Fatalf("log file = %s", b)
	}
}
