// Package library keeps the subscription and video library consistent.
//
// Feed resolution runs concurrently and never touches the store for writing.
// Every mutation (merging resolved subscriptions, cascade deletes, duplicate
// and orphan cleanup, feed ingestion) goes through a single writer that holds
// one store transaction at a time.
package library

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vidlib/internal/model"
	"vidlib/internal/storage"
)

const (
	defaultRecentVideoWindow = 50
	defaultMaxConcurrent     = 8
)

// Crawler loads a feed and turns it into a subscription candidate.
type Crawler interface {
	LoadSubscription(ctx context.Context, feedURL string) (*model.SendableSubscription, error)
}

// ChannelLookup resolves a user name to a channel ID.
type ChannelLookup interface {
	ChannelIDForUsername(ctx context.Context, userName string) (string, error)
}

// Notifier withdraws notifications previously sent for a video.
type Notifier interface {
	CancelVideoNotification(ctx context.Context, youtubeID string) error
}

// Options tunes a Library. Zero values select the defaults.
type Options struct {
	// RecentVideoWindow is the number of most recently published videos
	// inspected by the quick duplicate check.
	RecentVideoWindow int
	// MaxConcurrent bounds the number of feeds resolved at once.
	MaxConcurrent int
	// Now overrides the clock.
	Now func() time.Time
}

// Library is the entry point for subscription and cleanup operations.
type Library struct {
	store    storage.Storage
	crawler  Crawler
	lookup   ChannelLookup
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	recentWindow  int
	maxConcurrent int

	writeMu sync.Mutex
}

// New creates a Library. lookup may be nil, in which case user names
// cannot be resolved.
func New(store storage.Storage, crawler Crawler, lookup ChannelLookup, log *slog.Logger, opts Options) *Library {
	l := &Library{
		store:         store,
		crawler:       crawler,
		lookup:        lookup,
		log:           log,
		now:           storage.Now,
		recentWindow:  defaultRecentVideoWindow,
		maxConcurrent: defaultMaxConcurrent,
	}
	if opts.RecentVideoWindow > 0 {
		l.recentWindow = opts.RecentVideoWindow
	}
	if opts.MaxConcurrent > 0 {
		l.maxConcurrent = opts.MaxConcurrent
	}
	if opts.Now != nil {
		l.now = opts.Now
	}
	return l
}

// SetNotifier installs the notifier used when videos are deleted. It must be
// called before the library is used.
func (l *Library) SetNotifier(n Notifier) {
	l.notifier = n
}

// update runs fn as the single writer. Notifications of deleted videos are
// withdrawn once the transaction has committed.
func (l *Library) update(ctx context.Context, fn func(w *writer) error) error {
	cancelled, err := l.write(ctx, fn)
	if err != nil {
		return err
	}
	l.cancelNotifications(ctx, cancelled)
	return nil
}

// write holds the writer lock for one store transaction and returns the
// YouTube IDs of the videos it deleted.
func (l *Library) write(ctx context.Context, fn func(w *writer) error) ([]string, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	w := &writer{log: l.log, now: l.now()}
	err := l.store.Update(ctx, func(tx *storage.Tx) error {
		w.tx = tx
		w.cancelled = w.cancelled[:0]
		return fn(w)
	})
	if err != nil {
		return nil, err
	}
	return w.cancelled, nil
}

func (l *Library) cancelNotifications(ctx context.Context, youtubeIDs []string) {
	if l.notifier == nil {
		return
	}
	for _, id := range youtubeIDs {
		if err := l.notifier.CancelVideoNotification(ctx, id); err != nil {
			l.log.Warn("cancel video notification", "youtube_id", id, "error", err)
		}
	}
}

// FeedLink is the title and feed URL of an active subscription.
type FeedLink struct {
	Title string
	URL   string
}

// ActiveSubscriptions returns non-archived subscriptions whose title
// contains search.
func (l *Library) ActiveSubscriptions(ctx context.Context, search string) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := l.store.View(ctx, func(tx *storage.Tx) error {
		var err error
		subs, err = tx.ListActiveSubscriptions(ctx, search)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// FeedURLs returns the title and feed URL of every active subscription.
func (l *Library) FeedURLs(ctx context.Context) ([]FeedLink, error) {
	subs, err := l.ActiveSubscriptions(ctx, "")
	if err != nil {
		return nil, err
	}
	links := make([]FeedLink, 0, len(subs))
	for _, sub := range subs {
		links = append(links, FeedLink{Title: sub.Title, URL: feedURLOf(sub)})
	}
	return links, nil
}
