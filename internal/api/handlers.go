package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"vidlib/internal/model"
	"vidlib/internal/opml"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.lib.ActiveSubscriptions(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionFrom(sub))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subscriptions []subscriptionInfo `json:"subscriptions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "Invalid request")
		return
	}

	infos := make([]model.SubscriptionInfo, 0, len(req.Subscriptions))
	for _, info := range req.Subscriptions {
		infos = append(infos, info.model())
	}
	states, err := s.lib.AddSubscriptions(r.Context(), infos)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"states": statesFrom(states)})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Info       *subscriptionInfo `json:"info"`
		ExistingID int64             `json:"existing_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "Invalid request")
		return
	}

	var info *model.SubscriptionInfo
	if req.Info != nil {
		m := req.Info.model()
		info = &m
	}
	if err := s.lib.Subscribe(r.Context(), info, req.ExistingID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleDeleteSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs        []int64 `json:"ids"`
		ChannelID  string  `json:"channel_id"`
		PlaylistID string  `json:"playlist_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "Invalid request")
		return
	}

	var err error
	if len(req.IDs) > 0 {
		err = s.lib.DeleteSubscriptions(r.Context(), req.IDs)
	} else {
		err = s.lib.Unsubscribe(r.Context(), req.ChannelID, req.PlaylistID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleCleanupArchived(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.CleanupArchivedSubscriptions(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleCleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quick, err := queryBool(q.Get("quick"))
	if err != nil {
		s.badRequest(w, "Invalid quick flag")
		return
	}
	videoOnly, err := queryBool(q.Get("video_only"))
	if err != nil {
		s.badRequest(w, "Invalid video_only flag")
		return
	}

	info, err := s.lib.RemoveDuplicates(r.Context(), quick, videoOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "removed": removedFrom(info)})
}

func (s *Server) handleCleanupInbox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keep *int `json:"keep"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "Invalid request")
		return
	}
	if req.Keep != nil && *req.Keep < 0 {
		s.badRequest(w, "keep must not be negative")
		return
	}

	if err := s.lib.CleanupInboxEntryDates(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	removed := 0
	if req.Keep != nil {
		var err error
		removed, err = s.lib.ClearOldInboxEntries(r.Context(), *req.Keep)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "removed": removed})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	videos, err := s.lib.Refresh(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(videos) > 0 && s.notifier != nil {
		s.notifier.NotifyVideos(ctx, videos)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "new_videos": len(videos)})
}

func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("opml")
	if err != nil {
		s.badRequest(w, "No file provided")
		return
	}
	defer func() { _ = file.Close() }()

	entries, err := opml.Parse(file)
	if err != nil {
		s.badRequest(w, fmt.Sprintf("Failed to parse OPML: %v", err))
		return
	}

	infos := make([]model.SubscriptionInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, model.SubscriptionInfo{RSSFeed: e.FeedURL, URL: e.HTMLURL, Title: e.Title})
	}
	states, err := s.lib.AddSubscriptions(r.Context(), infos)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var imported, already, failed int
	for _, st := range states {
		switch {
		case st.Success:
			imported++
		case st.AlreadyAdded:
			already++
		default:
			failed++
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"imported":      imported,
		"already_added": already,
		"failed":        failed,
		"total":         len(entries),
		"states":        statesFrom(states),
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	links, err := s.lib.FeedURLs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries := make([]opml.Entry, 0, len(links))
	for _, l := range links {
		entries = append(entries, opml.Entry{Title: l.Title, FeedURL: l.URL})
	}
	data, err := opml.Export("vidlib subscriptions", entries, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=vidlib-subscriptions.opml")
	if _, err := w.Write(data); err != nil {
		s.log.Warn("write opml", "error", err)
	}
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
