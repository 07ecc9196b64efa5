package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"noticebot/internal/notice"
	logx "noticebot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadArchive(ctx context.Context) ([]notice.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT serial_number, notice, date, COALESCE(url, '') FROM notices ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []notice.Record{}
	for rows.Next() {
		var r notice.Record
		if err := rows.Scan(&r.Serial, &r.Text, &r.Date, &r.URL); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *sqliteStore) SaveArchive(ctx context.Context, recs []notice.Record) error {
	return s.replace(ctx, "notices", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO notices(position, serial_number, notice, date, url) VALUES(?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, r := range recs {
			if _, err := stmt.ExecContext(ctx, i+1, r.Serial, r.Text, r.Date, nullStr(r.URL)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadRoster(ctx context.Context) ([]notice.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT serial_number, recipient_id, subscribed_at, display_name, handle FROM subscribers ORDER BY serial_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []notice.Subscriber{}
	for rows.Next() {
		var sub notice.Subscriber
		if err := rows.Scan(&sub.Serial, &sub.RecipientID, &sub.SubscribedAt, &sub.DisplayName, &sub.Handle); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *sqliteStore) SaveRoster(ctx context.Context, subs []notice.Subscriber) error {
	return s.replace(ctx, "subscribers", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO subscribers(recipient_id, serial_number, subscribed_at, display_name, handle) VALUES(?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sub := range subs {
			if _, err := stmt.ExecContext(ctx, sub.RecipientID, sub.Serial, sub.SubscribedAt,
				notice.OrUnknown(sub.DisplayName), notice.OrUnknown(sub.Handle)); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace overwrites a whole table inside one transaction.
func (s *sqliteStore) replace(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
