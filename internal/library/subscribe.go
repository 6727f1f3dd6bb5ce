package library

import (
	"context"
	"errors"
	"fmt"

	"vidlib/internal/model"
	"vidlib/internal/storage"
)

// Subscribe subscribes to the source described by info. An existing
// subscription, given by existingID or found by playlist or channel ID, is
// unarchived instead of resolved again.
func (l *Library) Subscribe(ctx context.Context, info *model.SubscriptionInfo, existingID int64) error {
	if existingID != 0 {
		err := l.update(ctx, func(w *writer) error {
			sub, err := w.tx.SubscriptionByID(ctx, existingID)
			if err != nil {
				return err
			}
			return w.unarchive(ctx, sub)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("subscribe by id: %w", err)
		}
	}

	if info == nil {
		return ErrNoInfoFoundToSubscribeTo
	}
	ref, err := referenceFromInfo(*info)
	if err != nil {
		return err
	}

	if key := ref.key(); key.ChannelID != "" || key.PlaylistID != "" {
		found := false
		err := l.update(ctx, func(w *writer) error {
			sub, err := w.tx.FindSubscription(ctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found = true
			return w.unarchive(ctx, sub)
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		if found {
			return nil
		}
	}

	states, err := l.AddSubscriptions(ctx, []model.SubscriptionInfo{*info})
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return &CouldNotSubscribeError{Reason: "unknown"}
	}
	if first := states[0]; !first.Success && !first.AlreadyAdded {
		reason := "unknown"
		if first.Err != nil {
			reason = first.Err.Error()
		}
		return &CouldNotSubscribeError{Reason: reason, Err: first.Err}
	}
	return nil
}

// AddSubscriptions resolves every info concurrently and commits the results.
// It returns one state per item in completion order.
func (l *Library) AddSubscriptions(ctx context.Context, infos []model.SubscriptionInfo) ([]model.SubscriptionState, error) {
	if len(infos) == 0 {
		return nil, nil
	}
	results := fanOut(ctx, l.maxConcurrent, infos, l.resolveInfo)
	return l.commit(ctx, results)
}

// AddResolvedSubscriptions verifies pre-resolved candidates concurrently and
// commits them. It returns one state per item in completion order.
func (l *Library) AddResolvedSubscriptions(ctx context.Context, subs []model.SendableSubscription) ([]model.SubscriptionState, error) {
	if len(subs) == 0 {
		return nil, nil
	}
	results := fanOut(ctx, l.maxConcurrent, subs, l.resolveCandidate)
	return l.commit(ctx, results)
}

// Unsubscribe removes every subscription matching channelID or playlistID.
func (l *Library) Unsubscribe(ctx context.Context, channelID, playlistID string) error {
	if channelID == "" && playlistID == "" {
		return ErrNoInfoFoundToUnsubscribe
	}
	err := l.update(ctx, func(w *writer) error {
		subs, err := w.tx.SubscriptionsMatching(ctx, channelID, playlistID)
		if err != nil {
			return err
		}
		return w.deleteSubscriptions(ctx, subs)
	})
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// DeleteSubscriptions removes the subscriptions with the given IDs. Unknown
// IDs are skipped.
func (l *Library) DeleteSubscriptions(ctx context.Context, ids []int64) error {
	err := l.update(ctx, func(w *writer) error {
		subs := make([]model.Subscription, 0, len(ids))
		for _, id := range ids {
			sub, err := w.tx.SubscriptionByID(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			subs = append(subs, *sub)
		}
		return w.deleteSubscriptions(ctx, subs)
	})
	if err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	return nil
}

// CleanupArchivedSubscriptions removes archived subscriptions and their
// videos, keeping only videos with user state.
func (l *Library) CleanupArchivedSubscriptions(ctx context.Context) error {
	err := l.update(ctx, func(w *writer) error {
		subs, err := w.tx.ListArchivedSubscriptions(ctx)
		if err != nil {
			return err
		}
		return w.deleteSubscriptions(ctx, subs)
	})
	if err != nil {
		return fmt.Errorf("cleanup archived subscriptions: %w", err)
	}
	return nil
}
