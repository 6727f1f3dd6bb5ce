package api

import (
	"time"

	"vidlib/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var statusOK = statusResponse{Status: "ok"}

type subscriptionInfo struct {
	URL         string `json:"url,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	Description string `json:"description,omitempty"`
	RSSFeed     string `json:"rss_feed,omitempty"`
	Title       string `json:"title,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	PlaylistID  string `json:"playlist_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	FeedURL     string `json:"feed_url,omitempty"`
}

func (i subscriptionInfo) model() model.SubscriptionInfo {
	return model.SubscriptionInfo{
		URL:             i.URL,
		ChannelID:       i.ChannelID,
		Description:     i.Description,
		RSSFeed:         i.RSSFeed,
		Title:           i.Title,
		UserName:        i.UserName,
		PlaylistID:      i.PlaylistID,
		ImageURL:        i.ImageURL,
		FeedURLOverride: i.FeedURL,
	}
}

type subscription struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Link                string     `json:"link"`
	ChannelID           string     `json:"channel_id,omitempty"`
	PlaylistID          string     `json:"playlist_id,omitempty"`
	UserName            string     `json:"user_name,omitempty"`
	ThumbnailURL        string     `json:"thumbnail_url,omitempty"`
	VideoCount          int        `json:"video_count"`
	SubscribedDate      *time.Time `json:"subscribed_date,omitempty"`
	MostRecentVideoDate *time.Time `json:"most_recent_video_date,omitempty"`
}

func subscriptionFrom(s model.Subscription) subscription {
	return subscription{
		ID:                  s.ID,
		Title:               s.Title,
		Link:                s.Link,
		ChannelID:           s.ChannelID,
		PlaylistID:          s.PlaylistID,
		UserName:            s.UserName,
		ThumbnailURL:        s.ThumbnailURL,
		VideoCount:          s.VideoCount,
		SubscribedDate:      s.SubscribedDate,
		MostRecentVideoDate: s.MostRecentVideoDate,
	}
}

type subscriptionState struct {
	URL          string `json:"url,omitempty"`
	Title        string `json:"title,omitempty"`
	UserName     string `json:"user_name,omitempty"`
	ChannelID    string `json:"channel_id,omitempty"`
	PlaylistID   string `json:"playlist_id,omitempty"`
	Success      bool   `json:"success"`
	AlreadyAdded bool   `json:"already_added"`
	Error        string `json:"error,omitempty"`
}

func statesFrom(states []model.SubscriptionState) []subscriptionState {
	out := make([]subscriptionState, 0, len(states))
	for _, st := range states {
		s := subscriptionState{
			URL:          st.URL,
			Title:        st.Title,
			UserName:     st.UserName,
			ChannelID:    st.ChannelID,
			PlaylistID:   st.PlaylistID,
			Success:      st.Success,
			AlreadyAdded: st.AlreadyAdded,
		}
		if st.Err != nil {
			s.Error = st.Err.Error()
		}
		out = append(out, s)
	}
	return out
}

type removedDuplicates struct {
	Videos        int `json:"videos"`
	QueueEntries  int `json:"queue_entries"`
	InboxEntries  int `json:"inbox_entries"`
	Subscriptions int `json:"subscriptions"`
	Chapters      int `json:"chapters"`
}

func removedFrom(info model.RemovedDuplicatesInfo) removedDuplicates {
	return removedDuplicates{
		Videos:        info.CountVideos,
		QueueEntries:  info.CountQueueEntries,
		InboxEntries:  info.CountInboxEntries,
		Subscriptions: info.CountSubscriptions,
		Chapters:      info.CountChapters,
	}
}
