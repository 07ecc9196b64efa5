// Package registrar adds subscribers and delivers the catch-up of today's notices.
package registrar

import (
	"context"
	"strings"

	"noticebot/internal/notice"
	"noticebot/internal/render"
	"noticebot/internal/storage"
	logx "noticebot/pkg/logx"
	"noticebot/pkg/tgui"
)

type Outcome int

const (
	Registered Outcome = iota + 1
	AlreadySubscribed
)

func (o Outcome) String() string {
	switch o {
	case Registered:
		return "registered"
	case AlreadySubscribed:
		return "already_subscribed"
	default:
		return "unknown"
	}
}

type Registration struct {
	RecipientID int64
	DisplayName string
	Handle      string
}

type Result struct {
	Outcome Outcome
	// CatchUp counts today's records delivered after registering.
	CatchUp int
}

// Deliverer sends an already rendered payload to one recipient.
type Deliverer interface {
	SendTo(ctx context.Context, recipient int64, payload string) error
}

type Today interface {
	Today() string
}

type Service struct {
	docs    *storage.Documents
	out     Deliverer
	cal     Today
	welcome string
	log     logx.Logger
}

// New builds a registrar. welcome is plain text, sent before the catch-up
// when non-empty. It is escaped for render.ParseMode like every other payload.
func New(docs *storage.Documents, out Deliverer, cal Today, welcome string, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if welcome = strings.TrimSpace(welcome); welcome != "" {
		welcome = tgui.EscMarkdownV2(welcome)
	}
	return &Service{docs: docs, out: out, cal: cal, welcome: welcome, log: log}
}

// Register adds reg to the roster unless its recipient is already present.
// Catch-up delivery failures are logged and never undo the registration.
func (s *Service) Register(ctx context.Context, reg Registration) (Result, error) {
	today := s.cal.Today()
	outcome := AlreadySubscribed

	err := s.docs.UpdateRoster(ctx, func(subs []notice.Subscriber) ([]notice.Subscriber, bool, error) {
		for _, sub := range subs {
			if sub.RecipientID == reg.RecipientID {
				return subs, false, nil
			}
		}
		outcome = Registered
		return append(subs, notice.Subscriber{
			Serial:       len(subs) + 1,
			RecipientID:  reg.RecipientID,
			SubscribedAt: today,
			DisplayName:  notice.OrUnknown(reg.DisplayName),
			Handle:       notice.OrUnknown(reg.Handle),
		}), true, nil
	})
	if err != nil {
		return Result{}, err
	}

	log := s.log.With(logx.Int64("recipient", reg.RecipientID))
	if outcome == AlreadySubscribed {
		log.Debug("already subscribed")
		return Result{Outcome: AlreadySubscribed}, nil
	}
	log.Info("subscriber registered", logx.String("date", today))

	if s.welcome != "" {
		if err := s.out.SendTo(ctx, reg.RecipientID, s.welcome); err != nil {
			log.Warn("welcome send failed", logx.Err(err))
		}
	}
	return Result{Outcome: Registered, CatchUp: s.catchUp(ctx, reg.RecipientID, today, log)}, nil
}

func (s *Service) catchUp(ctx context.Context, rid int64, today string, log logx.Logger) int {
	recs, err := s.docs.Archive(ctx)
	if err != nil {
		log.Warn("catch-up archive load failed", logx.Err(err))
		return 0
	}
	n := 0
	for _, rec := range recs {
		if rec.Date != today {
			continue
		}
		if err := s.out.SendTo(ctx, rid, render.Record(rec)); err != nil {
			log.Warn("catch-up send failed", logx.Int("serial", rec.Serial), logx.Err(err))
			continue
		}
		n++
	}
	if n > 0 {
		log.Info("catch-up delivered", logx.Int("records", n))
	}
	return n
}
