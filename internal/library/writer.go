package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vidlib/internal/model"
	"vidlib/internal/storage"
)

// writer is the single mutation stage. It is only valid inside Library.update.
type writer struct {
	tx  *storage.Tx
	log *slog.Logger
	now time.Time

	// cancelled collects the YouTube IDs of deleted videos.
	cancelled []string
}

// commit merges resolved candidates into the store in one transaction. Each
// item is isolated in its own savepoint so a failing item does not undo the
// others.
func (l *Library) commit(ctx context.Context, results []resolution) ([]model.SubscriptionState, error) {
	batchID := uuid.NewString()
	log := l.log.With("batch_id", batchID)

	states := make([]model.SubscriptionState, len(results))
	err := l.update(ctx, func(w *writer) error {
		for i, r := range results {
			states[i] = r.state
			if r.sub == nil {
				continue
			}

			var existed bool
			err := w.tx.Savepoint(ctx, fmt.Sprintf("item_%d", i), func() error {
				var err error
				existed, err = w.mergeCandidate(ctx, r.sub)
				return err
			})
			if err != nil {
				log.Warn("merge subscription", "url", r.state.URL, "error", err)
				states[i].Success = false
				states[i].AlreadyAdded = false
				states[i].Err = err
				continue
			}
			states[i].AlreadyAdded = existed
			states[i].Success = !existed
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit subscriptions: %w", err)
	}

	var added, existing, failed int
	for _, s := range states {
		switch {
		case s.Success:
			added++
		case s.AlreadyAdded:
			existing++
		default:
			failed++
		}
	}
	log.Info("subscriptions committed", "added", added, "already_added", existing, "failed", failed)
	return states, nil
}

// mergeCandidate unarchives the subscription matching cand or inserts a new
// one. It reports whether a subscription already existed.
func (w *writer) mergeCandidate(ctx context.Context, cand *model.SendableSubscription) (bool, error) {
	var (
		existing *model.Subscription
		err      error
	)
	if cand.ID != 0 {
		existing, err = w.tx.SubscriptionByID(ctx, cand.ID)
	} else {
		existing, err = w.tx.FindSubscription(ctx, cand.Key())
	}
	switch {
	case err == nil:
		return true, w.unarchive(ctx, existing)
	case !errors.Is(err, storage.ErrNotFound):
		return false, fmt.Errorf("find subscription: %w", err)
	}

	sub := cand.Subscription(w.now)
	if err := w.tx.InsertSubscription(ctx, &sub); err != nil {
		return false, err
	}
	if _, err := w.ingestVideos(ctx, &sub, cand.Videos); err != nil {
		return false, fmt.Errorf("ingest videos: %w", err)
	}
	w.log.Debug("subscription added", "subscription_id", sub.ID, "title", sub.Title)
	return false, nil
}

// unarchive makes an archived subscription active again.
func (w *writer) unarchive(ctx context.Context, sub *model.Subscription) error {
	if !sub.IsArchived {
		return nil
	}
	now := w.now
	sub.IsArchived = false
	sub.SubscribedDate = &now
	if err := w.tx.UpdateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("unarchive subscription %d: %w", sub.ID, err)
	}
	w.log.Info("subscription unarchived", "subscription_id", sub.ID, "title", sub.Title)
	return nil
}
