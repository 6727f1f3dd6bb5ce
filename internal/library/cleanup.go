package library

import (
	"context"
	"fmt"
)

// ClearOldInboxEntries keeps the keep newest inbox entries and removes the
// rest. It returns the number of removed entries.
func (l *Library) ClearOldInboxEntries(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	removed := 0
	err := l.update(ctx, func(w *writer) error {
		removed = 0
		entries, err := w.tx.InboxEntriesNewestFirst(ctx)
		if err != nil {
			return err
		}
		if len(entries) <= keep {
			return nil
		}
		for _, e := range entries[keep:] {
			if err := w.tx.DeleteInboxEntry(ctx, e.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear old inbox entries: %w", err)
	}
	if removed > 0 {
		l.log.Info("old inbox entries removed", "count", removed, "kept", keep)
	}
	return removed, nil
}

// CleanupInboxEntryDates sets missing inbox entry dates to the publish date
// of their video.
func (l *Library) CleanupInboxEntryDates(ctx context.Context) error {
	var filled int64
	err := l.update(ctx, func(w *writer) error {
		var err error
		filled, err = w.tx.FillInboxEntryDates(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("cleanup inbox entry dates: %w", err)
	}
	if filled > 0 {
		l.log.Info("inbox entry dates filled", "count", filled)
	}
	return nil
}
