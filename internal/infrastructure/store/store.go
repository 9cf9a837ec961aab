// Package store persists channel subscription lists in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

const schema = `
CREATE TABLE IF NOT EXISTS channel_feeds (
	channel  TEXT    NOT NULL,
	position INTEGER NOT NULL,
	source   TEXT    NOT NULL,
	PRIMARY KEY (channel, source)
);
CREATE INDEX IF NOT EXISTS channel_feeds_order ON channel_feeds (channel, position);
`

// Store keeps each channel's ordered list of feed urls.
type Store struct {
	db *sql.DB
}

// Open opens (and creates) the database at path.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SubscriptionList returns the feed urls of channel in subscription order.
func (s *Store) SubscriptionList(ctx context.Context, channel subscription.ChannelRef) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source FROM channel_feeds WHERE channel = ? ORDER BY position`, channel.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// SetSubscriptionList replaces channel's feed urls.
func (s *Store) SetSubscriptionList(ctx context.Context, channel subscription.ChannelRef, sources []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM channel_feeds WHERE channel = ?`, channel.String()); err != nil {
		return err
	}
	for i, source := range sources {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO channel_feeds (channel, position, source) VALUES (?, ?, ?)`,
			channel.String(), i, source); err != nil {
			return fmt.Errorf("insert %s for %s: %w", source, channel, err)
		}
	}
	return tx.Commit()
}

// AssignedChannels returns every channel with at least one subscription.
func (s *Store) AssignedChannels(ctx context.Context) ([]subscription.ChannelSubscriptions, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, source FROM channel_feeds ORDER BY channel, position`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []subscription.ChannelSubscriptions
	for rows.Next() {
		var channel, source string
		if err := rows.Scan(&channel, &source); err != nil {
			return nil, err
		}
		ref := subscription.ChannelRef(channel)
		if n := len(out); n == 0 || out[n-1].Channel != ref {
			out = append(out, subscription.ChannelSubscriptions{Channel: ref})
		}
		out[len(out)-1].Sources = append(out[len(out)-1].Sources, source)
	}
	return out, rows.Err()
}
