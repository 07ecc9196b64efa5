package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"noticebot/internal/storage"
	kit "noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

func New(cfg Config, docs *storage.Documents, sender kit.Sender, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		docs:    docs,
		sender:  sender,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		status:  map[string]*JobStatus{},
	}
}

func (s *Service) sendOptions() *kit.SendOptions {
	return &kit.SendOptions{ParseMode: s.cfg.ParseMode, DisablePreview: s.cfg.DisablePreview}
}

// Broadcast sends payload to every subscriber whose subscription date is on
// or before today. A roster load failure is returned before anything is sent.
// Cancellation stops the loop and returns what was delivered so far.
func (s *Service) Broadcast(ctx context.Context, payload, today string) (Result, error) {
	subs, err := s.docs.Roster(ctx)
	if err != nil {
		return Result{}, err
	}

	targets := make([]int64, 0, len(subs))
	for _, sub := range subs {
		if sub.Eligible(today) {
			targets = append(targets, sub.RecipientID)
		}
	}

	id := s.newJob("notice", len(targets))
	res := Result{JobID: id}
	s.setRunning(id)
	defer s.finish(id)

	for _, rid := range targets {
		if err := s.SendTo(ctx, rid, payload); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed = append(res.Failed, rid)
			s.markFail(id, rid)
			s.log.Warn("broadcast send failed",
				logx.String("job", id),
				logx.Int64("recipient", rid),
				logx.Err(err),
			)
			continue
		}
		res.Sent++
		s.markDone(id)
	}

	s.log.Info("broadcast done",
		logx.String("job", id),
		logx.Int("eligible", len(targets)),
		logx.Int("sent", res.Sent),
		logx.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// SendTo delivers payload to exactly one recipient.
func (s *Service) SendTo(ctx context.Context, recipient int64, payload string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.sender.SendText(ctx, kit.ChatTarget{ChatID: recipient}, payload, s.sendOptions())
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return err
		}
		return &TransportError{Recipient: recipient, Err: err}
	}
	return nil
}

func (s *Service) newJob(name string, total int) string {
	now := time.Now()
	id := "bc:" + uuid.NewString()
	s.pruneStatus(now)

	s.statusMu.Lock()
	s.status[id] = &JobStatus{ID: id, Name: name, Total: total, CreatedAt: now}
	s.lastID = id
	s.statusMu.Unlock()
	return id
}

// Status returns a copy of the job's status.
func (s *Service) Status(jobID string) (JobStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[jobID]
	if !ok || st == nil {
		return JobStatus{}, false
	}
	cp := *st
	cp.Failures = append([]int64(nil), st.Failures...)
	return cp, true
}

// Last returns the most recent job, if any.
func (s *Service) Last() (JobStatus, bool) {
	s.statusMu.RLock()
	id := s.lastID
	s.statusMu.RUnlock()
	if id == "" {
		return JobStatus{}, false
	}
	return s.Status(id)
}

func (s *Service) setRunning(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.StartedAt = time.Now()
		st.Running = true
	}
}

func (s *Service) markDone(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Done++
	}
}

func (s *Service) markFail(id string, rid int64) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Failed++
		if len(st.Failures) < 200 {
			st.Failures = append(st.Failures, rid)
		}
	}
}

func (s *Service) finish(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.DoneAt = time.Now()
		st.Running = false
	}
}
