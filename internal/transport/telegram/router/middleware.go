package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "noticebot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

// Middleware decorates a handler.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies m so that m[0] is the outermost layer.
func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := range m {
		h = m[len(m)-1-i](h)
	}
	return h
}

// slowRequest promotes successful request logs from debug to info.
const slowRequest = 750 * time.Millisecond

func reqLogger(fallback logx.Logger, req *Request) logx.Logger {
	if req == nil || req.Logger.IsZero() {
		return fallback
	}
	return req.Logger
}

// MWTimeout bounds the handler's context. d <= 0 leaves it unbounded.
func MWTimeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next HandlerFunc) HandlerFunc { return next }
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// MWPanicRecover turns a handler panic into an error and logs the stack.
func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				reqLogger(log, req).Error("handler panicked",
					logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = fmt.Errorf("handler panicked: %v", r)
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs every request with its duration: failures at warn, slow
// ones at info, the rest at debug.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			began := time.Now()
			err := next(ctx, req)
			took := time.Since(began)

			l := reqLogger(log, req).With(logx.Int("args", len(req.Args)), logx.Duration("took", took))
			switch {
			case err != nil:
				l.Warn("command failed", logx.Err(err))
			case took >= slowRequest:
				l.Info("command handled (slow)")
			default:
				l.Debug("command handled")
			}
			return err
		}
	}
}
