package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"vidlib/internal/model"
	"vidlib/migrations"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: the store is the single serialized resource, and
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Orphaned rows must stay representable so cleanup can find them.
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if _, err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLite) View(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&Tx{tx: tx})
}

// Update runs fn in a transaction and commits it if fn returns nil.
func (s *SQLite) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordNotification stores the message sent for a video.
func (s *SQLite) RecordNotification(ctx context.Context, n model.Notification) error {
	sentAt := n.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (youtube_id, chat_id, message_id, sent_at) VALUES (?, ?, ?, ?)`,
		n.YoutubeID, n.ChatID, n.MessageID, formatTime(sentAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// NotificationsForVideo returns all messages sent for a video.
func (s *SQLite) NotificationsForVideo(ctx context.Context, youtubeID string) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT youtube_id, chat_id, message_id, sent_at FROM notifications
		 WHERE youtube_id = ? ORDER BY sent_at, chat_id, message_id`, youtubeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var sentAt string
		if err := rows.Scan(&n.YoutubeID, &n.ChatID, &n.MessageID, &sentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.SentAt, _ = time.Parse(timeLayout, sentAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNotifications forgets all messages sent for a video.
func (s *SQLite) DeleteNotifications(ctx context.Context, youtubeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE youtube_id = ?`, youtubeID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// Now returns the current time at the precision the store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type scannable interface {
	Scan(dest ...any) error
}
