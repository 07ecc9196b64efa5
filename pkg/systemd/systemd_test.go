package systemd

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	return true, nil
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestReadyAndStopping(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	n := &Notifier{notify: r.notify, wd: func(bool) (time.Duration, error) { return 0, nil }}
	if ok, err := n.Ready(); !ok || err != nil {
		t.Fatalf("Ready() = %v, %v", ok, err)
	}
	_, _ = n.Status("polling")
	_, _ = n.Stopping()

	if r.count("READY=1") != 1 || r.count("STOPPING=1") != 1 || r.count("STATUS=polling") != 1 {
		t.Fatalf("states = %v", r.states)
	}
}

func TestWatchdogDisabledReturnsImmediately(t *testing.T) {
	t.Parallel()

	n := &Notifier{
		notify: (&recorder{}).notify,
		wd:     func(bool) (time.Duration, error) { return 0, nil },
	}
	done := make(chan error, 1)
	go func() { done <- n.Watchdog(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watchdog() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Watchdog() did not return")
	}
}

func TestWatchdogPings(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	n := &Notifier{
		notify: r.notify,
		wd:     func(bool) (time.Duration, error) { return 20 * time.Millisecond, nil },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = n.Watchdog(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for r.count("WATCHDOG=1") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("watchdog pings = %d, want >= 2", r.count("WATCHDOG=1"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestNotOnSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	if ok, err := New().Ready(); ok || err != nil {
		t.Fatalf("Ready() outside systemd = %v, %v, want false, nil", ok, err)
	}
}
