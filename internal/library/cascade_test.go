package library

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vidlib/internal/model"
	"vidlib/internal/storage"
)

func youtubeIDs(videos []model.Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.YoutubeID)
	}
	slices.Sort(ids)
	return ids
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps videos with user state", func(t *testing.T) {
		env := newTestEnv(t)
		sub := env.insertSub(t, model.Subscription{
			Title:               "Channel",
			ChannelID:           "UCu",
			MostRecentVideoDate: timePtr(testNow),
		})
		plain := env.insertVideo(t, model.Video{YoutubeID: "plain", SubscriptionID: sub.ID})
		env.insertVideo(t, model.Video{YoutubeID: "bookmarked", SubscriptionID: sub.ID, BookmarkedDate: timePtr(testNow)})
		env.insertVideo(t, model.Video{YoutubeID: "inbox", SubscriptionID: sub.ID, InboxEntry: &model.InboxEntry{}})
		env.insertVideo(t, model.Video{YoutubeID: "queued", SubscriptionID: sub.ID, QueueEntry: &model.QueueEntry{}})
		env.insertVideo(t, model.Video{YoutubeID: "watched", SubscriptionID: sub.ID, WatchedDate: timePtr(testNow)})
		env.seed(t, func(tx *storage.Tx) error {
			return tx.InsertChapter(ctx, &model.Chapter{VideoID: plain.ID, Title: "Intro"})
		})

		if err := env.lib.Unsubscribe(ctx, "UCu", ""); err != nil {
			t.Fatalf("Unsubscribe: %v", err)
		}

		subs := env.subscriptions(t)
		if len(subs) != 1 {
			t.Fatalf("got %d subscriptions, want 1", len(subs))
		}
		if !subs[0].IsArchived || subs[0].MostRecentVideoDate != nil {
			t.Errorf("subscription = %+v, want archived without recency marker", subs[0])
		}

		want := []string{"bookmarked", "inbox", "queued", "watched"}
		if diff := cmp.Diff(want, youtubeIDs(env.videos(t))); diff != "" {
			t.Errorf("remaining videos mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"plain"}, env.notifier.cancelled); diff != "" {
			t.Errorf("cancelled notifications mismatch (-want +got):\n%s", diff)
		}

		env.seed(t, func(tx *storage.Tx) error {
			orphans, err := tx.OrphanChapters(ctx)
			if err != nil {
				return err
			}
			if len(orphans) != 0 {
				t.Errorf("chapters of the deleted video survived: %+v", orphans)
			}
			return nil
		})
	})

	t.Run("deletes subscription without user state", func(t *testing.T) {
		env := newTestEnv(t)
		sub := env.insertSub(t, model.Subscription{Title: "Playlist", ChannelID: "UCp", PlaylistID: "PLp"})
		env.insertVideo(t, model.Video{YoutubeID: "p1", SubscriptionID: sub.ID})
		env.insertVideo(t, model.Video{YoutubeID: "p2", SubscriptionID: sub.ID})
		other := env.insertSub(t, model.Subscription{Title: "Other", ChannelID: "UCother"})

		if err := env.lib.Unsubscribe(ctx, "", "PLp"); err != nil {
			t.Fatalf("Unsubscribe: %v", err)
		}

		subs := env.subscriptions(t)
		if len(subs) != 1 || subs[0].ID != other.ID {
			t.Errorf("subscriptions = %+v, want only %q", subs, other.Title)
		}
		if n := len(env.videos(t)); n != 0 {
			t.Errorf("got %d videos, want 0", n)
		}
	})

	t.Run("requires an identifier", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.lib.Unsubscribe(ctx, "", ""); !errors.Is(err, ErrNoInfoFoundToUnsubscribe) {
			t.Errorf("error = %v, want %v", err, ErrNoInfoFoundToUnsubscribe)
		}
	})
}

func TestCleanupArchivedSubscriptions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.notifier.err = errors.New("telegram unavailable")

	withBookmark := env.insertSub(t, model.Subscription{
		Title:               "Archived with bookmark",
		ChannelID:           "UCb",
		IsArchived:          true,
		MostRecentVideoDate: timePtr(testNow.Add(-time.Hour)),
	})
	env.insertVideo(t, model.Video{YoutubeID: "bm", SubscriptionID: withBookmark.ID, BookmarkedDate: timePtr(testNow)})
	env.insertVideo(t, model.Video{YoutubeID: "gone1", SubscriptionID: withBookmark.ID})

	plain := env.insertSub(t, model.Subscription{Title: "Archived plain", ChannelID: "UCplain", IsArchived: true})
	env.insertVideo(t, model.Video{YoutubeID: "gone2", SubscriptionID: plain.ID})

	active := env.insertSub(t, model.Subscription{Title: "Active", ChannelID: "UCactive"})
	env.insertVideo(t, model.Video{YoutubeID: "stays", SubscriptionID: active.ID})

	if err := env.lib.CleanupArchivedSubscriptions(ctx); err != nil {
		t.Fatalf("CleanupArchivedSubscriptions: %v", err)
	}

	got := make(map[string]model.Subscription)
	for _, s := range env.subscriptions(t) {
		got[s.Title] = s
	}
	if _, ok := got["Archived plain"]; ok {
		t.Error("archived subscription without user state should be deleted")
	}
	kept, ok := got["Archived with bookmark"]
	if !ok {
		t.Fatal("archived subscription with a bookmarked video should survive")
	}
	if !kept.IsArchived || kept.MostRecentVideoDate != nil {
		t.Errorf("kept subscription = %+v, want archived without recency marker", kept)
	}
	if _, ok := got["Active"]; !ok {
		t.Error("active subscription should not be touched")
	}

	if diff := cmp.Diff([]string{"bm", "stays"}, youtubeIDs(env.videos(t))); diff != "" {
		t.Errorf("remaining videos mismatch (-want +got):\n%s", diff)
	}
	slices.Sort(env.notifier.cancelled)
	if diff := cmp.Diff([]string{"gone1", "gone2"}, env.notifier.cancelled); diff != "" {
		t.Errorf("notification cancellation should be attempted (-want +got):\n%s", diff)
	}
}

func TestDeleteSubscriptions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.insertSub(t, model.Subscription{Title: "A", ChannelID: "UCa"})
	b := env.insertSub(t, model.Subscription{Title: "B", ChannelID: "UCb"})
	env.insertVideo(t, model.Video{YoutubeID: "a1", SubscriptionID: a.ID, QueueEntry: &model.QueueEntry{}})

	if err := env.lib.DeleteSubscriptions(ctx, []int64{a.ID, b.ID, 12345}); err != nil {
		t.Fatalf("DeleteSubscriptions: %v", err)
	}

	subs := env.subscriptions(t)
	if len(subs) != 1 || subs[0].ID != a.ID || !subs[0].IsArchived {
		t.Errorf("subscriptions = %+v, want only A archived", subs)
	}
}
