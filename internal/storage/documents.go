package storage

import (
	"context"
	"sync"

	"noticebot/internal/notice"
)

// Documents guards each document of a Store with its own lock.
//
// Every read-modify-write must go through UpdateArchive or UpdateRoster.
// The lock is held from load to save and released on every return path.
type Documents struct {
	store Store

	archiveMu sync.Mutex
	rosterMu  sync.Mutex
}

func NewDocuments(store Store) *Documents {
	return &Documents{store: store}
}

// Archive returns a snapshot of the notice archive.
func (d *Documents) Archive(ctx context.Context) ([]notice.Record, error) {
	d.archiveMu.Lock()
	defer d.archiveMu.Unlock()
	recs, err := d.store.LoadArchive(ctx)
	if err != nil {
		return nil, &PersistenceError{Doc: DocArchive, Op: "load", Err: err}
	}
	return recs, nil
}

// Roster returns a snapshot of the subscriber roster.
func (d *Documents) Roster(ctx context.Context) ([]notice.Subscriber, error) {
	d.rosterMu.Lock()
	defer d.rosterMu.Unlock()
	subs, err := d.store.LoadRoster(ctx)
	if err != nil {
		return nil, &PersistenceError{Doc: DocRoster, Op: "load", Err: err}
	}
	return subs, nil
}

// UpdateArchive loads the archive, passes it to fn and saves the result when
// fn reports a change. An error from fn aborts without writing.
func (d *Documents) UpdateArchive(ctx context.Context, fn func(recs []notice.Record) ([]notice.Record, bool, error)) error {
	d.archiveMu.Lock()
	defer d.archiveMu.Unlock()

	recs, err := d.store.LoadArchive(ctx)
	if err != nil {
		return &PersistenceError{Doc: DocArchive, Op: "load", Err: err}
	}
	next, changed, err := fn(recs)
	if err != nil || !changed {
		return err
	}
	if err := d.store.SaveArchive(ctx, next); err != nil {
		return &PersistenceError{Doc: DocArchive, Op: "save", Err: err}
	}
	return nil
}

// UpdateRoster is UpdateArchive for the subscriber roster.
func (d *Documents) UpdateRoster(ctx context.Context, fn func(subs []notice.Subscriber) ([]notice.Subscriber, bool, error)) error {
	d.rosterMu.Lock()
	defer d.rosterMu.Unlock()

	subs, err := d.store.LoadRoster(ctx)
	if err != nil {
		return &PersistenceError{Doc: DocRoster, Op: "load", Err: err}
	}
	next, changed, err := fn(subs)
	if err != nil || !changed {
		return err
	}
	if err := d.store.SaveRoster(ctx, next); err != nil {
		return &PersistenceError{Doc: DocRoster, Op: "save", Err: err}
	}
	return nil
}

func (d *Documents) Close() error { return d.store.Close() }
