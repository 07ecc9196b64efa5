package app

import (
	"context"

	"noticebot/internal/notice"
	"noticebot/internal/services/broadcast"
	"noticebot/internal/storage"
	"noticebot/internal/task/scheduler"
	"noticebot/internal/transport/telegram/router"
)

// statusProvider gathers what the owner /status command shows.
type statusProvider struct {
	docs  *storage.Documents
	cal   notice.Calendar
	sched *scheduler.Scheduler
	bc    *broadcast.Service
}

func (p *statusProvider) Status(ctx context.Context) (router.Status, error) {
	today := p.cal.Today()
	st := router.Status{Date: today}

	subs, err := p.docs.Roster(ctx)
	if err != nil {
		return st, err
	}
	st.Subscribers = len(subs)
	for _, s := range subs {
		if s.Eligible(today) {
			st.Eligible++
		}
	}

	recs, err := p.docs.Archive(ctx)
	if err != nil {
		return st, err
	}
	st.Archived = len(recs)
	for _, r := range recs {
		if r.Date == today {
			st.ArchivedToday++
		}
	}

	if p.sched != nil {
		st.Scheduler = p.sched.Snapshot()
	}
	if p.bc != nil {
		if last, ok := p.bc.Last(); ok {
			st.LastBroadcast = &last
		}
	}
	return st, nil
}
