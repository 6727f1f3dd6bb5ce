package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vidlib/internal/feed"
	"vidlib/internal/library"
	"vidlib/internal/model"
	"vidlib/internal/storage"
)

type fakeCrawler struct {
	mu    sync.Mutex
	feeds map[string]model.SendableSubscription
}

func (f *fakeCrawler) LoadSubscription(_ context.Context, feedURL string) (*model.SendableSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.feeds[feedURL]
	if !ok {
		return nil, errors.New("unexpected status 404")
	}
	sub.Link = feedURL
	return &sub, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	videos int
}

func (f *fakeNotifier) NotifyVideos(_ context.Context, videos []model.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos += len(videos)
}

var published = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	crawler := &fakeCrawler{feeds: map[string]model.SendableSubscription{
		feed.ChannelFeedURL("UCabc123"): {
			Title:     "Gopher Talks",
			ChannelID: "UCabc123",
			Videos:    []model.SendableVideo{{YoutubeID: "vid00000002", Title: "Generics", PublishedDate: &published}},
		},
		feed.PlaylistFeedURL("PLxyz789"): {
			Title:      "Concurrency Series",
			ChannelID:  "UCabc123",
			PlaylistID: "PLxyz789",
		},
	}}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib := library.New(store, crawler, nil, log, library.Options{})
	s := New(lib, &fakeNotifier{}, log)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func listTitles(t *testing.T, s *Server) []string {
	t.Helper()
	rec := do(t, s, http.MethodGet, "/api/subscriptions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	titles := []string{}
	for _, sub := range decode[[]subscription](t, rec) {
		titles = append(titles, sub.Title)
	}
	return titles
}

func TestAddSubscriptions(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/subscriptions", `{"subscriptions":[
		{"url":"https://www.youtube.com/channel/UCabc123"},
		{"url":"https://example.com/blog"},
		{"url":"https://www.youtube.com/playlist?list=PLxyz789"}
	]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	resp := decode[struct {
		States []subscriptionState `json:"states"`
	}](t, rec)
	got := map[string]bool{}
	for _, st := range resp.States {
		got[st.URL] = st.Success
		if !st.Success && st.Error == "" {
			t.Errorf("failed state for %s has no error", st.URL)
		}
	}
	want := map[string]bool{
		"https://www.youtube.com/channel/UCabc123":       true,
		"https://example.com/blog":                       false,
		"https://www.youtube.com/playlist?list=PLxyz789": true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"Concurrency Series", "Gopher Talks"}, listTitles(t, s)); diff != "" {
		t.Errorf("subscriptions mismatch (-want +got):\n%s", diff)
	}
}

func TestAddSubscriptionsInvalidBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/subscriptions", `{"subscriptions":`)
	if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
		wantTitles []string
	}{
		{
			name:       "channel url",
			body:       `{"info":{"url":"https://www.youtube.com/channel/UCabc123"}}`,
			wantStatus: http.StatusOK,
			wantTitles: []string{"Gopher Talks"},
		},
		{
			name:       "nothing to subscribe to",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  library.UserMessage(library.ErrNoInfoFoundToSubscribeTo),
			wantTitles: []string{},
		},
		{
			name:       "unsupported link",
			body:       `{"info":{"url":"https://vimeo.com/123"}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  library.UserMessage(library.ErrNotSupported),
			wantTitles: []string{},
		},
		{
			name:       "feed cannot be loaded",
			body:       `{"info":{"channel_id":"UCmissing"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantTitles: []string{},
		},
		{
			name:       "user name without lookup",
			body:       `{"info":{"url":"https://www.youtube.com/user/gophers"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantTitles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/api/subscribe", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantError != "" {
				resp := decode[errorResponse](t, rec)
				if diff := cmp.Diff(tt.wantError, resp.Error); diff != "" {
					t.Errorf("error message (-want +got):\n%s", diff)
				}
			}
			if diff := cmp.Diff(tt.wantTitles, listTitles(t, s)); diff != "" {
				t.Errorf("subscriptions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteSubscriptions(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/subscribe", `{"info":{"url":"https://www.youtube.com/channel/UCabc123"}}`)
	do(t, s, http.MethodPost, "/api/subscribe", `{"info":{"url":"https://www.youtube.com/playlist?list=PLxyz789"}}`)

	rec := do(t, s, http.MethodDelete, "/api/subscriptions", `{}`)
	if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
		t.Errorf("empty delete status (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodDelete, "/api/subscriptions", `{"playlist_id":"PLxyz789"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if diff := cmp.Diff([]string{"Gopher Talks"}, listTitles(t, s)); diff != "" {
		t.Errorf("after unsubscribe (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodDelete, "/api/subscriptions", `{"ids":[1,42]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if diff := cmp.Diff([]string{}, listTitles(t, s)); diff != "" {
		t.Errorf("after delete by id (-want +got):\n%s", diff)
	}
}

func TestCleanupEndpoints(t *testing.T) {
	ctx := context.Background()
	s, store := newTestServer(t)

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	err := store.Update(ctx, func(tx *storage.Tx) error {
		for i, id := range []string{"a", "a", "b"} {
			date := day.Add(time.Duration(i) * time.Hour)
			if err := tx.InsertVideo(ctx, &model.Video{YoutubeID: id, PublishedDate: &date, InboxEntry: &model.InboxEntry{}}); err != nil {
				return err
			}
		}
		return tx.InsertSubscription(ctx, &model.Subscription{Title: "Old", ChannelID: "UCold", IsArchived: true})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := do(t, s, http.MethodPost, "/api/cleanup/duplicates?quick=maybe", "")
	if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
		t.Errorf("invalid flag status (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodPost, "/api/cleanup/duplicates?video_only=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	dup := decode[struct {
		Removed removedDuplicates `json:"removed"`
	}](t, rec)
	if diff := cmp.Diff(removedDuplicates{Videos: 1}, dup.Removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodPost, "/api/cleanup/archived", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	err = store.View(ctx, func(tx *storage.Tx) error {
		archived, err := tx.ListArchivedSubscriptions(ctx)
		if len(archived) != 0 {
			t.Errorf("archived subscriptions left: %d", len(archived))
		}
		return err
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	rec = do(t, s, http.MethodPost, "/api/cleanup/inbox", `{"keep":-1}`)
	if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
		t.Errorf("negative keep status (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodPost, "/api/cleanup/inbox", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	err = store.View(ctx, func(tx *storage.Tx) error {
		entries, err := tx.InboxEntriesNewestFirst(ctx)
		for _, e := range entries {
			if e.Date == nil {
				t.Errorf("inbox entry %d has no date after cleanup", e.ID)
			}
		}
		return err
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	rec = do(t, s, http.MethodPost, "/api/cleanup/inbox", `{"keep":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	inbox := decode[struct {
		Removed int `json:"removed"`
	}](t, rec)
	if diff := cmp.Diff(1, inbox.Removed); diff != "" {
		t.Errorf("removed inbox entries (-want +got):\n%s", diff)
	}
}

func TestRefresh(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/subscribe", `{"info":{"url":"https://www.youtube.com/channel/UCabc123"}}`)

	rec := do(t, s, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		NewVideos int `json:"new_videos"`
	}](t, rec)
	if diff := cmp.Diff(0, resp.NewVideos); diff != "" {
		t.Errorf("new videos (-want +got):\n%s", diff)
	}
}

func TestImportExportOPML(t *testing.T) {
	s, _ := newTestServer(t)

	doc := `<?xml version="1.0"?>
<opml version="1.1"><body><outline text="YouTube Subscriptions">
  <outline text="Gopher Talks" type="rss" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"/>
  <outline text="Gone" type="rss" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UCgone"/>
</outline></body></opml>`

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("opml", "subscriptions.opml")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(doc)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import-opml", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body)
	}

	type importResult struct {
		Imported     int `json:"imported"`
		AlreadyAdded int `json:"already_added"`
		Failed       int `json:"failed"`
		Total        int `json:"total"`
	}
	got := decode[importResult](t, rec)
	if diff := cmp.Diff(importResult{Imported: 1, Failed: 1, Total: 2}, got); diff != "" {
		t.Errorf("import result (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodGet, "/api/export-opml", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if diff := cmp.Diff("application/xml", rec.Header().Get("Content-Type")); diff != "" {
		t.Errorf("content type (-want +got):\n%s", diff)
	}
	exported := rec.Body.String()
	for _, want := range []string{
		`text="Gopher Talks"`,
		`xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"`,
	} {
		if !strings.Contains(exported, want) {
			t.Errorf("export missing %s:\n%s", want, exported)
		}
	}
}

func TestImportOPMLWithoutFile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/import-opml", "")
	if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}
