// Package poll runs one fetch, ingest and broadcast cycle.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"noticebot/internal/notice"
	"noticebot/internal/render"
	"noticebot/internal/services/broadcast"
	"noticebot/internal/services/fetcher"
	"noticebot/internal/storage"
	logx "noticebot/pkg/logx"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]fetcher.Candidate, error)
}

type Ingester interface {
	Ingest(ctx context.Context, cands []fetcher.Candidate, today string) ([]notice.Record, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, payload, today string) (broadcast.Result, error)
}

type Today interface {
	Today() string
}

// Report summarizes one cycle.
type Report struct {
	CycleID string
	Date    string
	Fetched int
	New     int
	Sent    int
	Failed  int
	Took    time.Duration
}

type Monitor struct {
	fetch  Fetcher
	ingest Ingester
	bc     Broadcaster
	cal    Today
	log    logx.Logger

	observe func(Report, error)
}

func NewMonitor(f Fetcher, in Ingester, bc Broadcaster, cal Today, log logx.Logger) *Monitor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Monitor{fetch: f, ingest: in, bc: bc, cal: cal, log: log}
}

// Cycle fetches the source once, archives what is new and broadcasts each
// new record. Fetch and persistence failures end the cycle and are returned.
// A broadcast failure for one record does not stop the next.
func (m *Monitor) Cycle(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{CycleID: uuid.NewString(), Date: m.cal.Today()}
	log := m.log.With(logx.String("cycle", rep.CycleID))

	cands, err := m.fetch.Fetch(ctx)
	if err != nil {
		log.Warn("fetch failed", logx.Err(err))
		return rep, err
	}
	rep.Fetched = len(cands)

	fresh, err := m.ingest.Ingest(ctx, cands, rep.Date)
	if err != nil {
		var pe *storage.PersistenceError
		if errors.As(err, &pe) {
			log.Error("archive update failed; cycle abandoned", logx.String("doc", string(pe.Doc)), logx.Err(err))
		} else {
			log.Error("ingest failed", logx.Err(err))
		}
		return rep, err
	}
	rep.New = len(fresh)

	for _, rec := range fresh {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := m.bc.Broadcast(ctx, render.Record(rec), rep.Date)
		rep.Sent += res.Sent
		rep.Failed += len(res.Failed)
		if err != nil {
			log.Error("broadcast failed", logx.Int("serial", rec.Serial), logx.Err(err))
		}
	}

	rep.Took = time.Since(start)
	log.Info("cycle done",
		logx.Int("fetched", rep.Fetched),
		logx.Int("new", rep.New),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
		logx.Duration("took", rep.Took),
	)
	return rep, nil
}

// OnCycle registers fn to receive every report produced by Run.
// It must be called before Run is first used.
func (m *Monitor) OnCycle(fn func(Report, error)) { m.observe = fn }

// Run adapts Cycle to a scheduler job.
func (m *Monitor) Run(ctx context.Context) error {
	rep, err := m.Cycle(ctx)
	if m.observe != nil {
		m.observe(rep, err)
	}
	return err
}
