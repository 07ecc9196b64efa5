package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	logx "noticebot/pkg/logx"
)

// A run lasting this long counts as healthy and resets the backoff.
const healthyRun = 30 * time.Second

type RestartOption func(*restartPolicy)

type restartPolicy struct {
	base, cap   time.Duration
	maxRestarts int // 0 is unlimited
	publish     bool
}

// WithRestartBackoff sets the first and the largest delay between restarts.
func WithRestartBackoff(base, limit time.Duration) RestartOption {
	return func(p *restartPolicy) {
		if base > 0 {
			p.base = base
		}
		if limit > 0 {
			p.cap = limit
		}
	}
}

// WithMaxRestarts gives up after n restarts.
func WithMaxRestarts(n int) RestartOption { return func(p *restartPolicy) { p.maxRestarts = n } }

// WithPublishFirstError records failures as the supervisor error. Without
// it a restarted goroutine never fails the supervisor.
func WithPublishFirstError(on bool) RestartOption { return func(p *restartPolicy) { p.publish = on } }

// delay doubles from base up to cap, with up to 20% jitter added.
func (p restartPolicy) delay(attempt int) time.Duration {
	d := p.base
	for i := 0; i < attempt && d < p.cap; i++ {
		d *= 2
	}
	d = min(d, p.cap)
	if j := int64(d) / 5; j > 0 {
		d += time.Duration(rand.Int64N(j + 1))
	}
	return d
}

// GoRestart keeps fn running: an error or panic restarts it after a backoff,
// a nil return or a cancelled context ends it.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	if fn == nil {
		return
	}
	pol := restartPolicy{base: 250 * time.Millisecond, cap: 30 * time.Second}
	for _, opt := range opts {
		opt(&pol)
	}
	pol.cap = max(pol.cap, pol.base)
	log := s.log.With(logx.String("name", name))

	s.Go0(name+".restart", func(ctx context.Context) {
		attempt := 0
		for restarts := 1; ; restarts++ {
			began := time.Now()
			err, p := protect(ctx, fn)
			if p != nil {
				log.Error("goroutine panicked; restarting", logx.Any("panic", p.value), logx.String("stack", p.stack))
				err = fmt.Errorf("panic: %v", p.value)
			}
			if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			err = fmt.Errorf("%s: %w", name, err)
			if pol.publish {
				s.record(err)
			}
			if pol.maxRestarts > 0 && restarts > pol.maxRestarts {
				log.Error("goroutine gave up", logx.Int("restarts", restarts), logx.Err(err))
				return
			}

			if time.Since(began) >= healthyRun {
				attempt = 0
			}
			wait := pol.delay(attempt)
			attempt++
			log.Warn("goroutine restarting", logx.Duration("backoff", wait), logx.Err(err))

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	})
}

// GoRestart0 is GoRestart for fn without an error result; only panics
// restart it.
func (s *Supervisor) GoRestart0(name string, fn func(ctx context.Context), opts ...RestartOption) {
	if fn != nil {
		s.GoRestart(name, noErr(fn), opts...)
	}
}
