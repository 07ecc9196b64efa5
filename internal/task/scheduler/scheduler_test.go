package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "noticebot/pkg/logx"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		waits: make(chan chan time.Time, 64),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- ch
	return ch
}

// fire advances the clock and wakes the pending wait.
func (c *fakeClock) fire(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ch := <-c.waits:
		c.mu.Lock()
		c.now = c.now.Add(d)
		now := c.now
		c.mu.Unlock()
		ch <- now
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never waited on the clock")
	}
}

func waitRun(t *testing.T, runs <-chan int) int {
	t.Helper()
	select {
	case n := <-runs:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
		return 0
	}
}

func TestSchedulerRunsPerActivationAndSurvivesFailures(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	runs := make(chan int, 8)
	var n int
	job := func(ctx context.Context) error {
		n++
		runs <- n
		switch n {
		case 2:
			return errors.New("source down")
		case 3:
			panic("boom")
		}
		return nil
	}
	s, err := New(Config{Schedule: "1h", Location: time.UTC, RunOnStart: true}, job, clk, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if got := waitRun(t, runs); got != 1 {
		t.Fatalf("first run = %d, want 1 (run on start)", got)
	}
	for want := 2; want <= 4; want++ {
		clk.fire(t, time.Hour)
		if got := waitRun(t, runs); got != want {
			t.Fatalf("run = %d, want %d", got, want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	snap := s.Snapshot()
	if snap.Runs != 4 || snap.Failures != 2 {
		t.Fatalf("Snapshot = %+v, want 4 runs and 2 failures", snap)
	}
	if snap.State != Idle {
		t.Fatalf("State = %s, want idle", snap.State)
	}
}

func TestSchedulerWithoutRunOnStartWaits(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	runs := make(chan int, 4)
	s, err := New(Config{Schedule: "1h", Location: time.UTC}, func(context.Context) error {
		runs <- 1
		return nil
	}, clk, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	clk.fire(t, time.Hour)
	waitRun(t, runs)
	select {
	case <-runs:
		t.Fatal("ran more than once for one activation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerTriggerCoalesces(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	s, err := New(Config{Schedule: "1h", Location: time.UTC}, func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}, clk, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Trigger()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not start a cycle")
	}
	if s.State() != Running {
		t.Fatalf("State = %s, want running", s.State())
	}

	// Three triggers while running fold into one follow-up cycle.
	s.Trigger()
	s.Trigger()
	s.Trigger()
	release <- struct{}{}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up cycle did not start")
	}
	release <- struct{}{}

	select {
	case <-started:
		t.Fatal("triggers were not coalesced")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerCycleTimeout(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	errs := make(chan error, 1)
	s, err := New(Config{Schedule: "1h", Location: time.UTC, RunOnStart: true, CycleTimeout: 10 * time.Millisecond}, func(ctx context.Context) error {
		<-ctx.Done()
		errs <- ctx.Err()
		return ctx.Err()
	}, clk, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case err := <-errs:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("job ctx err = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cycle timeout not applied")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Schedule: "soon"}, func(context.Context) error { return nil }, nil, logx.Nop()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
