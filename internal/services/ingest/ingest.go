// Package ingest turns fetched candidates into new archive records.
package ingest

import (
	"context"
	"strings"

	"noticebot/internal/notice"
	"noticebot/internal/services/fetcher"
	"noticebot/internal/storage"
	logx "noticebot/pkg/logx"
	"noticebot/pkg/urlnorm"
)

type Engine struct {
	docs    *storage.Documents
	baseURL string
	log     logx.Logger
}

func New(docs *storage.Documents, baseURL string, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{docs: docs, baseURL: baseURL, log: log}
}

// Ingest appends the candidates not yet archived for today and returns them
// in fetch order. The archive is written at most once per call.
func (e *Engine) Ingest(ctx context.Context, cands []fetcher.Candidate, today string) ([]notice.Record, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	var fresh []notice.Record
	err := e.docs.UpdateArchive(ctx, func(recs []notice.Record) ([]notice.Record, bool, error) {
		seen := make(map[notice.Key]struct{}, len(recs)+len(cands))
		for _, r := range recs {
			seen[r.Key()] = struct{}{}
		}

		fresh = fresh[:0]
		for i, c := range cands {
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			rec := notice.Record{
				Serial: i + 1,
				Text:   text,
				Date:   today,
				URL:    urlnorm.Normalize(c.RawLink, e.baseURL),
			}
			k := rec.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			fresh = append(fresh, rec)
		}
		if len(fresh) == 0 {
			return recs, false, nil
		}
		return append(recs, fresh...), true, nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("ingest done",
		logx.Int("candidates", len(cands)),
		logx.Int("new", len(fresh)),
		logx.String("date", today),
	)
	return fresh, nil
}
