package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noticebot/internal/notice"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": a directory with one JSON file per document (default)
//   - "sqlite": a SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store loads and overwrites whole documents. Loading a document that was
// never saved returns an empty slice and no error.
type Store interface {
	LoadArchive(ctx context.Context) ([]notice.Record, error)
	SaveArchive(ctx context.Context, recs []notice.Record) error
	LoadRoster(ctx context.Context) ([]notice.Subscriber, error)
	SaveRoster(ctx context.Context, subs []notice.Subscriber) error
	Close() error
}

// Doc names a persisted document.
type Doc string

const (
	DocArchive Doc = "archive"
	DocRoster  Doc = "roster"
)

// PersistenceError reports a document that could not be read or written.
// The mutation that hit it has not been applied.
type PersistenceError struct {
	Doc Doc
	Op  string // "load" | "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Doc, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
