package library

import (
	"context"
	"fmt"

	"vidlib/internal/model"
)

// deleteVideo removes a video together with its inbox and queue entries and
// its raw and merged chapters.
func (w *writer) deleteVideo(ctx context.Context, v model.Video) error {
	if _, err := w.tx.DeleteInboxEntriesForVideo(ctx, v.ID); err != nil {
		return err
	}
	if _, err := w.tx.DeleteQueueEntriesForVideo(ctx, v.ID); err != nil {
		return err
	}
	if _, err := w.tx.DeleteChaptersForVideo(ctx, v.ID); err != nil {
		return err
	}
	if err := w.tx.DeleteVideo(ctx, v.ID); err != nil {
		return err
	}
	w.cancelled = append(w.cancelled, v.YoutubeID)
	return nil
}

// deleteSubscriptions removes the videos of each subscription that carry no
// user state. A subscription left with videos stays archived with its
// recency marker cleared; one left empty is deleted.
func (w *writer) deleteSubscriptions(ctx context.Context, subs []model.Subscription) error {
	for _, sub := range subs {
		if err := w.deleteSubscription(ctx, sub); err != nil {
			return fmt.Errorf("delete subscription %d: %w", sub.ID, err)
		}
	}
	return nil
}

func (w *writer) deleteSubscription(ctx context.Context, sub model.Subscription) error {
	videos, err := w.tx.VideosBySubscription(ctx, sub.ID)
	if err != nil {
		return err
	}

	kept := 0
	for _, v := range videos {
		if v.HasUserState() {
			kept++
			continue
		}
		if err := w.deleteVideo(ctx, v); err != nil {
			return fmt.Errorf("delete video %d: %w", v.ID, err)
		}
	}

	if kept > 0 {
		sub.IsArchived = true
		sub.MostRecentVideoDate = nil
		if err := w.tx.UpdateSubscription(ctx, &sub); err != nil {
			return err
		}
		w.log.Info("subscription archived", "subscription_id", sub.ID, "kept_videos", kept)
		return nil
	}

	if err := w.tx.DeleteSubscription(ctx, sub.ID); err != nil {
		return err
	}
	w.log.Info("subscription deleted", "subscription_id", sub.ID, "deleted_videos", len(videos))
	return nil
}
