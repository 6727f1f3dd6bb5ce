// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"vidlib/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// Storage is the interface for all persistence operations.
//
// Reads and writes of library entities happen inside scoped transactions:
// Update commits when fn returns nil and rolls back otherwise, View always
// rolls back. Nested transactions are not supported; calling View or Update
// from inside fn blocks.
type Storage interface {
	View(ctx context.Context, fn func(tx *Tx) error) error
	Update(ctx context.Context, fn func(tx *Tx) error) error

	RecordNotification(ctx context.Context, n model.Notification) error
	NotificationsForVideo(ctx context.Context, youtubeID string) ([]model.Notification, error)
	DeleteNotifications(ctx context.Context, youtubeID string) error

	Close() error
}
