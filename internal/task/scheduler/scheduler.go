package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	logx "noticebot/pkg/logx"
)

type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

type Config struct {
	Schedule     string
	Location     *time.Location
	RunOnStart   bool
	CycleTimeout time.Duration
}

// Snapshot is a point-in-time view for status reporting.
type Snapshot struct {
	State     State
	Schedule  string
	Runs      uint64
	Failures  uint64
	LastStart time.Time
	LastTook  time.Duration
	LastErr   string
	Next      time.Time
}

type Scheduler struct {
	cfg   Config
	spec  ParsedSpec
	sched cron.Schedule
	clock Clock
	job   Job
	log   logx.Logger

	state   atomic.Int32
	trigger chan struct{}

	mu        sync.Mutex
	runs      uint64
	failures  uint64
	lastStart time.Time
	lastTook  time.Duration
	lastErr   string
	next      time.Time
}

// New validates cfg.Schedule and returns an Idle scheduler. A nil clock means SystemClock.
func New(cfg Config, job Job, clock Clock, log logx.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job required")
	}
	spec, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	sched, err := spec.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		cfg:     cfg,
		spec:    spec,
		sched:   sched,
		clock:   clock,
		job:     job,
		log:     log,
		trigger: make(chan struct{}, 1),
	}, nil
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Trigger requests a cycle as soon as the scheduler is Idle. Requests made
// while a cycle is pending or running collapse into one.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. It always returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		logx.String("schedule", s.spec.String()),
		logx.String("tz", s.cfg.Location.String()),
		logx.Bool("run_on_start", s.cfg.RunOnStart),
	)
	if s.cfg.RunOnStart && ctx.Err() == nil {
		s.runOnce(ctx, "start")
	}

	for {
		now := s.clock.Now().In(s.cfg.Location)
		next := s.sched.Next(now)
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		s.log.Debug("next cycle", logx.Time("at", next), logx.Duration("in", wait))

		reason := "schedule"
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-s.clock.After(wait):
		case <-s.trigger:
			reason = "trigger"
		}
		if ctx.Err() != nil {
			s.log.Info("scheduler stopped")
			return nil
		}
		s.runOnce(ctx, reason)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	id := uuid.NewString()
	log := s.log.With(logx.String("run", id), logx.String("reason", reason))

	s.state.Store(int32(Running))
	start := s.clock.Now()
	s.mu.Lock()
	s.lastStart = start
	s.mu.Unlock()

	err := s.invoke(ctx, log)

	took := s.clock.Now().Sub(start)
	s.mu.Lock()
	s.runs++
	s.lastTook = took
	s.lastErr = ""
	if err != nil {
		s.failures++
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	s.state.Store(int32(Idle))

	if err != nil {
		log.Warn("cycle failed", logx.Duration("took", took), logx.Err(err))
		return
	}
	log.Debug("cycle finished", logx.Duration("took", took))
}

func (s *Scheduler) invoke(ctx context.Context, log logx.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in scheduled job", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	runCtx := ctx
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}
	return s.job(runCtx)
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.State(),
		Schedule:  s.spec.String(),
		Runs:      s.runs,
		Failures:  s.failures,
		LastStart: s.lastStart,
		LastTook:  s.lastTook,
		LastErr:   s.lastErr,
		Next:      s.next,
	}
}
