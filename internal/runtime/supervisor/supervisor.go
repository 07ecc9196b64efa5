// Package supervisor runs the process's long-lived goroutines under one
// context: each is named, counted and recovered on panic.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	logx "noticebot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger

	cancelOnErr bool

	wg      sync.WaitGroup
	running atomic.Int64

	mu   sync.Mutex
	err  error
	done chan struct{} // closed by the first Wait once wg drains
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option { return func(s *Supervisor) { s.log = log } }

// WithCancelOnError makes any goroutine failure stop all the others.
func WithCancelOnError(on bool) Option { return func(s *Supervisor) { s.cancelOnErr = on } }

func New(parent context.Context, opts ...Option) *Supervisor {
	s := &Supervisor{}
	s.ctx, s.cancel = context.WithCancel(parent)
	for _, opt := range opts {
		opt(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }
func (s *Supervisor) Cancel()                  { s.cancel() }
func (s *Supervisor) Active() int64            { return s.running.Load() }

// Err is the first failure recorded, or nil.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Supervisor) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Go runs fn once. An error other than context.Canceled, or a panic, is
// recorded and, with WithCancelOnError, cancels the context.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	s.running.Add(1)
	go func() {
		defer func() {
			s.running.Add(-1)
			s.wg.Done()
		}()
		log := s.log.With(logx.String("name", name))

		var failure error
		if err, p := protect(s.ctx, fn); p != nil {
			log.Error("goroutine panicked", logx.Any("panic", p.value), logx.String("stack", p.stack))
			failure = fmt.Errorf("panic in %s: %v", name, p.value)
		} else if err != nil && !errors.Is(err, context.Canceled) {
			failure = fmt.Errorf("%s: %w", name, err)
		}
		if failure != nil {
			s.record(failure)
			if s.cancelOnErr {
				s.cancel()
			}
		}
		log.Debug("goroutine stopped")
	}()
}

// Go0 is Go for fn without an error result.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn != nil {
		s.Go(name, noErr(fn))
	}
}

// Wait blocks until every goroutine returned or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.done == nil {
		s.done = make(chan struct{})
		go func(done chan struct{}) {
			s.wg.Wait()
			close(done)
		}(s.done)
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is Cancel followed by Wait.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

type panicked struct {
	value any
	stack string
}

func protect(ctx context.Context, fn func(context.Context) error) (err error, p *panicked) {
	defer func() {
		if r := recover(); r != nil {
			p = &panicked{value: r, stack: string(debug.Stack())}
		}
	}()
	return fn(ctx), nil
}

func noErr(fn func(context.Context)) func(context.Context) error {
	return func(ctx context.Context) error {
		fn(ctx)
		return nil
	}
}
