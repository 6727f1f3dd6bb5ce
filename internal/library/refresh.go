package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vidlib/internal/model"
	"vidlib/internal/storage"
)

type loadedFeed struct {
	sub  model.Subscription
	cand *model.SendableSubscription
	err  error
}

// Refresh loads the feed of every active subscription and stores videos not
// yet in the library. Videos published after a subscription's most recent
// known video are put into the inbox and returned; the first load of a
// subscription only seeds its backlog.
func (l *Library) Refresh(ctx context.Context) ([]model.Video, error) {
	subs, err := l.ActiveSubscriptions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	log := l.log.With("batch_id", uuid.NewString())
	loaded := fanOut(ctx, l.maxConcurrent, subs, func(ctx context.Context, sub model.Subscription) loadedFeed {
		cand, err := l.crawler.LoadSubscription(ctx, feedURLOf(sub))
		return loadedFeed{sub: sub, cand: cand, err: err}
	})

	var added []model.Video
	err = l.update(ctx, func(w *writer) error {
		added = added[:0]
		for i, lf := range loaded {
			if lf.err != nil {
				log.Warn("load feed", "subscription_id", lf.sub.ID, "url", feedURLOf(lf.sub), "error", lf.err)
				continue
			}

			// The subscription may have changed while its feed was loading.
			sub, err := w.tx.SubscriptionByID(ctx, lf.sub.ID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if sub.IsArchived {
				continue
			}

			var videos []model.Video
			err = w.tx.Savepoint(ctx, fmt.Sprintf("refresh_%d", i), func() error {
				var err error
				videos, err = w.ingestVideos(ctx, sub, lf.cand.Videos)
				return err
			})
			if err != nil {
				log.Warn("ingest videos", "subscription_id", sub.ID, "error", err)
				continue
			}
			added = append(added, videos...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	log.Info("refresh finished", "subscriptions", len(subs), "new_videos", len(added))
	return added, nil
}

// ingestVideos inserts the candidate videos missing from the library and
// advances the subscription's recency marker.
func (w *writer) ingestVideos(ctx context.Context, sub *model.Subscription, videos []model.SendableVideo) ([]model.Video, error) {
	seed := sub.MostRecentVideoDate == nil
	latest := sub.MostRecentVideoDate

	var inboxed []model.Video
	for _, sv := range videos {
		if sv.YoutubeID == "" {
			continue
		}
		_, err := w.tx.VideoByYoutubeID(ctx, sv.YoutubeID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}

		v := model.Video{
			YoutubeID:        sv.YoutubeID,
			URL:              sv.URL,
			Title:            sv.Title,
			SubscriptionID:   sub.ID,
			YoutubeChannelID: sv.YoutubeChannelID,
			ThumbnailURL:     sv.ThumbnailURL,
			PublishedDate:    sv.PublishedDate,
			CreatedDate:      w.now,
		}
		fresh := !seed && sv.PublishedDate != nil && sv.PublishedDate.After(*sub.MostRecentVideoDate)
		if fresh {
			v.IsNew = true
			v.InboxEntry = &model.InboxEntry{Date: sv.PublishedDate}
		}
		if err := w.tx.InsertVideo(ctx, &v); err != nil {
			return nil, err
		}
		if fresh {
			inboxed = append(inboxed, v)
		}
		if sv.PublishedDate != nil && (latest == nil || sv.PublishedDate.After(*latest)) {
			latest = sv.PublishedDate
		}
	}

	if latest != sub.MostRecentVideoDate {
		sub.MostRecentVideoDate = latest
		if err := w.tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, err
		}
	}
	return inboxed, nil
}
