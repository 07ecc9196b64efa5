package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"noticebot/internal/notice"
	logx "noticebot/pkg/logx"
)

const (
	archiveFile = "flash_news.json"
	rosterFile  = "subscribers.json"
)

// fileStore keeps each document as an indented JSON array inside one directory.
//
// Files:
//   - <dir>/flash_news.json  (notice archive)
//   - <dir>/subscribers.json (subscriber roster)
//
// Writes go to a temp file that is renamed over the target, so a crash
// mid-write leaves the previous document intact.
type fileStore struct {
	log logx.Logger
	dir string

	mu     sync.Mutex
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	log.Debug("file store opened", logx.String("dir", dir))
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) LoadArchive(ctx context.Context) ([]notice.Record, error) {
	var recs []notice.Record
	if err := s.load(ctx, archiveFile, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []notice.Record{}
	}
	return recs, nil
}

func (s *fileStore) SaveArchive(ctx context.Context, recs []notice.Record) error {
	if recs == nil {
		recs = []notice.Record{}
	}
	return s.save(ctx, archiveFile, recs)
}

func (s *fileStore) LoadRoster(ctx context.Context) ([]notice.Subscriber, error) {
	var subs []notice.Subscriber
	if err := s.load(ctx, rosterFile, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []notice.Subscriber{}
	}
	return subs, nil
}

func (s *fileStore) SaveRoster(ctx context.Context, subs []notice.Subscriber) error {
	if subs == nil {
		subs = []notice.Subscriber{}
	}
	return s.save(ctx, rosterFile, subs)
}

func (s *fileStore) load(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func (s *fileStore) save(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("document saved", logx.String("file", name), logx.Int("bytes", len(b)))
	return nil
}
