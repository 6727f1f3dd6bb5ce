package library

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"vidlib/internal/model"
)

// RemoveDuplicates restores the library invariants. With quickCheck set the
// pass is skipped unless the most recent videos show a duplicate or a video
// in both inbox and queue. Unless videoOnly is set, subscription duplicates,
// empty archived subscriptions and orphaned chapters and entries are removed
// first. Video duplicates are always removed.
//
// Individual steps log and continue; only a failed commit is returned.
func (l *Library) RemoveDuplicates(ctx context.Context, quickCheck, videoOnly bool) (model.RemovedDuplicatesInfo, error) {
	var info model.RemovedDuplicatesInfo
	err := l.update(ctx, func(w *writer) error {
		info = model.RemovedDuplicatesInfo{}

		if quickCheck {
			dirty, err := w.recentVideosDirty(ctx, l.recentWindow)
			if err != nil {
				w.log.Warn("quick duplicate check", "error", err)
			} else if !dirty {
				w.log.Debug("quick duplicate check found nothing")
				return nil
			}
		}

		if !videoOnly {
			w.step(ctx, "remove subscription duplicates", &info, w.removeSubscriptionDuplicates)
			w.step(ctx, "remove empty subscriptions", &info, w.removeEmptySubscriptions)
			w.step(ctx, "remove orphaned chapters", &info, w.removeOrphanedChapters)
			w.step(ctx, "remove orphaned inbox entries", &info, w.removeOrphanedInboxEntries)
			w.step(ctx, "remove orphaned queue entries", &info, w.removeOrphanedQueueEntries)
		}
		w.step(ctx, "remove video duplicates", &info, w.removeVideoDuplicatesAndEntries)
		if !videoOnly {
			// Removing video duplicates can leave archived subscriptions empty.
			w.step(ctx, "remove emptied subscriptions", &info, w.removeEmptySubscriptions)
		}
		return nil
	})
	if err != nil {
		return model.RemovedDuplicatesInfo{}, err
	}

	l.log.Info("duplicates removed",
		"quick_check", quickCheck,
		"video_only", videoOnly,
		"videos", info.CountVideos,
		"subscriptions", info.CountSubscriptions,
		"inbox_entries", info.CountInboxEntries,
		"queue_entries", info.CountQueueEntries,
		"chapters", info.CountChapters,
	)
	return info, nil
}

// step runs one cleanup step in a savepoint. A failing step is rolled back
// and logged; its counts are discarded.
func (w *writer) step(ctx context.Context, name string, info *model.RemovedDuplicatesInfo,
	fn func(ctx context.Context, info *model.RemovedDuplicatesInfo) error,
) {
	counts := *info
	cancelled := len(w.cancelled)
	err := w.tx.Savepoint(ctx, "cleanup_step", func() error {
		return fn(ctx, &counts)
	})
	if err != nil {
		w.cancelled = w.cancelled[:cancelled]
		w.log.Warn("cleanup step failed", "step", name, "error", err)
		return
	}
	*info = counts
}

func (w *writer) recentVideosDirty(ctx context.Context, window int) (bool, error) {
	videos, err := w.tx.RecentVideos(ctx, window)
	if err != nil {
		return false, err
	}
	seen := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		if _, ok := seen[v.YoutubeID]; ok {
			return true, nil
		}
		if v.InboxEntry != nil && v.QueueEntry != nil {
			return true, nil
		}
		seen[v.YoutubeID] = struct{}{}
	}
	return false, nil
}

// findDuplicates groups items by key and sorts every group with more than
// one member by compare. The first item of a group is kept; the others are
// returned.
func findDuplicates[T any, K comparable](items []T, key func(T) K, compare func(a, b T) int) []T {
	groups := make(map[K][]T)
	var order []K
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}

	var removable []T
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		slices.SortStableFunc(group, compare)
		removable = append(removable, group[1:]...)
	}
	return removable
}

// subscriptionKey groups subscriptions for duplicate detection. Records
// without any identifier fall back to their feed link.
type subscriptionKey struct {
	model.IdentityKey
	Link string
}

func dedupeKeyOf(sub model.Subscription) subscriptionKey {
	key := model.IdentityKey{ChannelID: sub.ChannelID, PlaylistID: sub.PlaylistID}
	if key.ChannelID == "" && key.PlaylistID == "" {
		return subscriptionKey{Link: sub.Link}
	}
	return subscriptionKey{IdentityKey: key}
}

// compareSubscriptions orders the preferred keeper first: more videos, then
// the later subscription date, then active before archived.
func compareSubscriptions(now time.Time) func(a, b model.Subscription) int {
	return func(a, b model.Subscription) int {
		if c := cmp.Compare(b.VideoCount, a.VideoCount); c != 0 {
			return c
		}
		if c := timeOr(b.SubscribedDate, now).Compare(timeOr(a.SubscribedDate, now)); c != 0 {
			return c
		}
		return preferTrue(!a.IsArchived, !b.IsArchived)
	}
}

// compareVideos orders the video carrying the most user state first.
func compareVideos(a, b model.Video) int {
	if c := preferTrue(a.SubscriptionID != 0, b.SubscriptionID != 0); c != 0 {
		return c
	}
	if c := preferTrue(a.WatchedDate != nil, b.WatchedDate != nil); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ElapsedSeconds, a.ElapsedSeconds); c != 0 {
		return c
	}
	if c := preferTrue(!a.IsNew, !b.IsNew); c != 0 {
		return c
	}
	if c := cmp.Compare(queueOrder(a), queueOrder(b)); c != 0 {
		return c
	}
	return preferTrue(a.InboxEntry != nil, b.InboxEntry != nil)
}

func preferTrue(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func queueOrder(v model.Video) int {
	if v.QueueEntry == nil {
		return math.MaxInt
	}
	return v.QueueEntry.Order
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}

func (w *writer) removeSubscriptionDuplicates(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	all, err := w.tx.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	subs := slices.DeleteFunc(all, func(s model.Subscription) bool {
		return dedupeKeyOf(s) == subscriptionKey{}
	})

	duplicates := findDuplicates(subs, dedupeKeyOf, compareSubscriptions(w.now))
	removed := make(map[int64]bool, len(duplicates))
	for _, d := range duplicates {
		removed[d.ID] = true
	}
	keepers := make(map[subscriptionKey]int64)
	for _, s := range subs {
		if !removed[s.ID] {
			keepers[dedupeKeyOf(s)] = s.ID
		}
	}

	for _, dup := range duplicates {
		keeper := keepers[dedupeKeyOf(dup)]
		videos, err := w.tx.VideosBySubscription(ctx, dup.ID)
		if err != nil {
			return err
		}
		for _, v := range videos {
			if v.HasUserState() {
				if err := w.tx.SetVideoSubscription(ctx, v.ID, keeper); err != nil {
					return err
				}
				continue
			}
			if err := w.deleteVideo(ctx, v); err != nil {
				return err
			}
		}
		if err := w.tx.DeleteSubscription(ctx, dup.ID); err != nil {
			return err
		}
		info.CountSubscriptions++
		w.log.Debug("duplicate subscription removed", "subscription_id", dup.ID, "keeper_id", keeper)
	}
	return nil
}

func (w *writer) removeEmptySubscriptions(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	subs, err := w.tx.ListArchivedSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.VideoCount > 0 {
			continue
		}
		if err := w.tx.DeleteSubscription(ctx, sub.ID); err != nil {
			return err
		}
		info.CountSubscriptions++
	}
	return nil
}

func (w *writer) removeOrphanedChapters(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	chapters, err := w.tx.OrphanChapters(ctx)
	if err != nil {
		return err
	}
	for _, c := range chapters {
		if err := w.tx.DeleteChapter(ctx, c.ID); err != nil {
			return err
		}
	}
	info.CountChapters += len(chapters)
	return nil
}

func (w *writer) removeOrphanedInboxEntries(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	entries, err := w.tx.OrphanInboxEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.tx.DeleteInboxEntry(ctx, e.ID); err != nil {
			return err
		}
	}
	info.CountInboxEntries += len(entries)
	return nil
}

func (w *writer) removeOrphanedQueueEntries(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	entries, err := w.tx.OrphanQueueEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.tx.DeleteQueueEntry(ctx, e.ID); err != nil {
			return err
		}
	}
	info.CountQueueEntries += len(entries)
	return nil
}

// removeVideoDuplicatesAndEntries drops the inbox entries of videos that are
// also queued, then removes videos sharing a YouTube ID.
func (w *writer) removeVideoDuplicatesAndEntries(ctx context.Context, info *model.RemovedDuplicatesInfo) error {
	videos, err := w.tx.ListVideos(ctx)
	if err != nil {
		return err
	}

	for i := range videos {
		v := &videos[i]
		if v.InboxEntry == nil || v.QueueEntry == nil {
			continue
		}
		n, err := w.tx.DeleteInboxEntriesForVideo(ctx, v.ID)
		if err != nil {
			return err
		}
		v.InboxEntry = nil
		info.CountInboxEntries += int(n)
		w.log.Debug("inbox entry removed from queued video", "video_id", v.ID, "youtube_id", v.YoutubeID)
	}

	duplicates := findDuplicates(videos, func(v model.Video) string { return v.YoutubeID }, compareVideos)
	for _, dup := range duplicates {
		if err := w.deleteVideo(ctx, dup); err != nil {
			return err
		}
	}
	info.CountVideos += len(duplicates)
	return nil
}
