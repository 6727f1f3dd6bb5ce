package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"vidlib/internal/feed"
	"vidlib/internal/model"
	"vidlib/internal/storage"
)

// resolution is the outcome of resolving one feed reference. sub is nil
// when there is nothing to write.
type resolution struct {
	state model.SubscriptionState
	sub   *model.SendableSubscription
}

// reference names a subscribable source. FeedURL, when set, is used as-is.
type reference struct {
	FeedURL    string
	ChannelID  string
	UserName   string
	PlaylistID string
}

func (r reference) key() model.IdentityKey {
	return model.IdentityKey{ChannelID: r.ChannelID, PlaylistID: r.PlaylistID}
}

func (r reference) empty() bool {
	return r.FeedURL == "" && r.ChannelID == "" && r.UserName == "" && r.PlaylistID == ""
}

func referenceFromInfo(info model.SubscriptionInfo) (reference, error) {
	ref := reference{ChannelID: info.ChannelID, UserName: info.UserName, PlaylistID: info.PlaylistID}

	switch {
	case info.FeedURLOverride != "":
		ref.FeedURL = info.FeedURLOverride
	case info.RSSFeed != "":
		ref.FeedURL = info.RSSFeed
	case feed.IsFeedURL(info.URL):
		ref.FeedURL = info.URL
	case info.URL != "":
		parsed := feed.ParseReference(info.URL)
		if parsed.Empty() && ref.empty() {
			return ref, fmt.Errorf("%w: %s", ErrNotSupported, info.URL)
		}
		ref.ChannelID = cmp.Or(ref.ChannelID, parsed.ChannelID)
		ref.UserName = cmp.Or(ref.UserName, parsed.UserName)
		ref.PlaylistID = cmp.Or(ref.PlaylistID, parsed.PlaylistID)
	}

	if ref.FeedURL != "" {
		key := feed.FeedIdentity(ref.FeedURL)
		ref.ChannelID = cmp.Or(ref.ChannelID, key.ChannelID)
		ref.PlaylistID = cmp.Or(ref.PlaylistID, key.PlaylistID)
	}
	if ref.empty() {
		return ref, ErrNoInfoFoundToSubscribeTo
	}
	return ref, nil
}

// feedURL derives the feed URL of ref: playlist, then channel, then user name.
func (l *Library) feedURL(ctx context.Context, ref reference) (string, error) {
	switch {
	case ref.FeedURL != "":
		return ref.FeedURL, nil
	case ref.PlaylistID != "":
		return feed.PlaylistFeedURL(ref.PlaylistID), nil
	case ref.ChannelID != "":
		return feed.ChannelFeedURL(ref.ChannelID), nil
	case ref.UserName != "":
		if l.lookup == nil {
			return "", fmt.Errorf("%w: %s: no channel lookup configured", ErrFailedGettingChannelID, ref.UserName)
		}
		channelID, err := l.lookup.ChannelIDForUsername(ctx, ref.UserName)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFailedGettingChannelID, err)
		}
		return feed.ChannelFeedURL(channelID), nil
	}
	return "", ErrNoInfoFoundToSubscribeTo
}

// resolveInfo resolves caller supplied metadata into a candidate. Fields
// of the loaded feed win; the info only fills what the feed left empty.
func (l *Library) resolveInfo(ctx context.Context, info model.SubscriptionInfo) resolution {
	res := resolution{state: model.SubscriptionState{
		URL:        cmp.Or(info.URL, info.RSSFeed, info.FeedURLOverride),
		Title:      info.Title,
		UserName:   info.UserName,
		ChannelID:  info.ChannelID,
		PlaylistID: info.PlaylistID,
	}}

	ref, err := referenceFromInfo(info)
	if err != nil {
		res.state.Err = err
		return res
	}
	if existing := l.existingSubscription(ctx, ref.key()); existing != nil {
		return alreadyAdded(res, existing)
	}

	feedURL, err := l.feedURL(ctx, ref)
	if err != nil {
		res.state.Err = err
		return res
	}
	sub, err := l.crawler.LoadSubscription(ctx, feedURL)
	if err != nil {
		res.state.Err = fmt.Errorf("load feed %s: %w", feedURL, err)
		return res
	}

	sub.Link = cmp.Or(sub.Link, info.RSSFeed, feedURL)
	sub.ChannelID = cmp.Or(sub.ChannelID, info.ChannelID)
	sub.UserName = cmp.Or(sub.UserName, info.UserName, ref.UserName)
	sub.ThumbnailURL = cmp.Or(sub.ThumbnailURL, info.ImageURL)

	return l.candidate(ctx, res, sub)
}

// resolveCandidate verifies a pre-resolved candidate. A candidate without
// identity is loaded from its link first.
func (l *Library) resolveCandidate(ctx context.Context, cand model.SendableSubscription) resolution {
	res := resolution{state: model.SubscriptionState{
		URL:        cand.Link,
		Title:      cand.Title,
		UserName:   cand.UserName,
		ChannelID:  cand.ChannelID,
		PlaylistID: cand.PlaylistID,
	}}

	sub := cand
	sub.ID = 0
	if sub.ChannelID == "" && sub.PlaylistID == "" {
		if sub.Link == "" {
			res.state.Err = ErrNoInfoFoundToSubscribeTo
			return res
		}
		loaded, err := l.crawler.LoadSubscription(ctx, sub.Link)
		if err != nil {
			res.state.Err = fmt.Errorf("load feed %s: %w", sub.Link, err)
			return res
		}
		sub.ChannelID = loaded.ChannelID
		sub.PlaylistID = loaded.PlaylistID
		sub.Title = cmp.Or(sub.Title, loaded.Title)
		sub.ThumbnailURL = cmp.Or(sub.ThumbnailURL, loaded.ThumbnailURL)
		if len(sub.Videos) == 0 {
			sub.Videos = loaded.Videos
		}
	}
	if sub.Link == "" {
		sub.Link = feedURLOf(sub.Subscription(l.now()))
	}

	return l.candidate(ctx, res, &sub)
}

func (l *Library) candidate(ctx context.Context, res resolution, sub *model.SendableSubscription) resolution {
	res.state.Title = sub.Title
	res.state.ChannelID = sub.ChannelID
	res.state.PlaylistID = sub.PlaylistID
	res.state.UserName = sub.UserName

	// A subscription needs a channel or playlist ID to be identifiable.
	if sub.ChannelID == "" && sub.PlaylistID == "" {
		res.state.Err = fmt.Errorf("%w: %s has no channel or playlist ID", ErrNotSupported, sub.Link)
		return res
	}
	if existing := l.existingSubscription(ctx, sub.Key()); existing != nil {
		return alreadyAdded(res, existing)
	}
	res.sub = sub
	return res
}

// existingSubscription looks up a subscription by identity through a read
// transaction. Lookup failures are logged and treated as "not found"; the
// writer checks again before inserting.
func (l *Library) existingSubscription(ctx context.Context, key model.IdentityKey) *model.Subscription {
	if key.ChannelID == "" && key.PlaylistID == "" {
		return nil
	}
	var sub *model.Subscription
	err := l.store.View(ctx, func(tx *storage.Tx) error {
		var err error
		sub, err = tx.FindSubscription(ctx, key)
		return err
	})
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.log.Warn("find subscription", "channel_id", key.ChannelID, "playlist_id", key.PlaylistID, "error", err)
		}
		return nil
	}
	return sub
}

func alreadyAdded(res resolution, existing *model.Subscription) resolution {
	res.state.AlreadyAdded = true
	res.state.Title = existing.Title
	res.state.ChannelID = existing.ChannelID
	res.state.PlaylistID = existing.PlaylistID
	res.sub = &model.SendableSubscription{
		ID:             existing.ID,
		Link:           existing.Link,
		Title:          existing.Title,
		ChannelID:      existing.ChannelID,
		PlaylistID:     existing.PlaylistID,
		UserName:       existing.UserName,
		ThumbnailURL:   existing.ThumbnailURL,
		IsArchived:     existing.IsArchived,
		SubscribedDate: existing.SubscribedDate,
	}
	return res
}

// feedURLOf returns the stored link or, without one, a URL derived from
// the subscription's identity.
func feedURLOf(sub model.Subscription) string {
	switch {
	case sub.Link != "":
		return sub.Link
	case sub.PlaylistID != "":
		return feed.PlaylistFeedURL(sub.PlaylistID)
	case sub.ChannelID != "":
		return feed.ChannelFeedURL(sub.ChannelID)
	}
	return ""
}
