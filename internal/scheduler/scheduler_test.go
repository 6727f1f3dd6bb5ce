package scheduler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vidlib/internal/feed"
	"vidlib/internal/library"
	"vidlib/internal/model"
	"vidlib/internal/storage"
)

type mockNotifier struct {
	mu     sync.Mutex
	videos []string
}

func (m *mockNotifier) NotifyVideos(_ context.Context, videos []model.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range videos {
		m.videos = append(m.videos, v.YoutubeID)
	}
}

func (m *mockNotifier) notified() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.videos...)
}

type mockHTTP struct {
	body string
}

func (m *mockHTTP) Do(_ *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/youtube_channel.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestLibrary(store storage.Storage, body string) *library.Library {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return library.New(store, feed.New(&mockHTTP{body: body}), nil, log, library.Options{})
}

func listVideos(t *testing.T, store *storage.SQLite) []model.Video {
	t.Helper()
	var videos []model.Video
	err := store.View(context.Background(), func(tx *storage.Tx) error {
		var err error
		videos, err = tx.ListVideos(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	return videos
}

func TestSchedulerRefreshNotifiesNewVideos(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	lib := newTestLibrary(store, loadFixture(t))

	marker := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)
	err := store.Update(ctx, func(tx *storage.Tx) error {
		return tx.InsertSubscription(ctx, &model.Subscription{
			Title:               "Gopher Talks",
			ChannelID:           "UCabc123",
			Link:                feed.ChannelFeedURL("UCabc123"),
			MostRecentVideoDate: &marker,
		})
	})
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	notifier := &mockNotifier{}
	s := New(lib, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	s.refresh(ctx)

	if diff := cmp.Diff([]string{"vid00000002"}, notifier.notified()); diff != "" {
		t.Errorf("notified videos (-want +got):\n%s", diff)
	}

	inbox := map[string]bool{}
	for _, v := range listVideos(t, store) {
		inbox[v.YoutubeID] = v.InboxEntry != nil
	}
	want := map[string]bool{"vid00000001": false, "vid00000002": true}
	if diff := cmp.Diff(want, inbox); diff != "" {
		t.Errorf("inbox placement (-want +got):\n%s", diff)
	}

	s.refresh(ctx)
	if diff := cmp.Diff(1, len(notifier.notified())); diff != "" {
		t.Errorf("second refresh must not notify again (-want +got):\n%s", diff)
	}
}

func TestSchedulerRefreshWithoutNotifier(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	lib := newTestLibrary(store, loadFixture(t))

	s := New(lib, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	s.refresh(ctx)

	if diff := cmp.Diff(0, len(listVideos(t, store))); diff != "" {
		t.Errorf("videos without subscriptions (-want +got):\n%s", diff)
	}
}

func TestSchedulerMaintenance(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	lib := newTestLibrary(store, "")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	err := store.Update(ctx, func(tx *storage.Tx) error {
		for i, id := range []string{"a", "a", "b", "c"} {
			date := base.Add(time.Duration(i) * time.Hour)
			v := model.Video{YoutubeID: id, PublishedDate: &date, InboxEntry: &model.InboxEntry{Date: &date}}
			if err := tx.InsertVideo(ctx, &v); err != nil {
				return err
			}
		}
		return tx.InsertQueueEntry(ctx, &model.QueueEntry{VideoID: 999})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := New(lib, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{InboxKeep: 1})
	s.maintain(ctx)

	var ids []string
	inboxed := 0
	for _, v := range listVideos(t, store) {
		ids = append(ids, v.YoutubeID)
		if v.InboxEntry != nil {
			inboxed++
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("videos after maintenance (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, inboxed); diff != "" {
		t.Errorf("inbox entries kept (-want +got):\n%s", diff)
	}

	err = store.View(ctx, func(tx *storage.Tx) error {
		orphans, err := tx.OrphanQueueEntries(ctx)
		if len(orphans) != 0 {
			t.Errorf("orphan queue entries left: %d", len(orphans))
		}
		return err
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	lib := newTestLibrary(store, "")
	s := New(lib, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		RefreshInterval:     10 * time.Millisecond,
		MaintenanceInterval: 15 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
