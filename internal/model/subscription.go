package model

import (
	"time"
)

// SubscriptionInfo is caller-supplied metadata about something to subscribe to.
type SubscriptionInfo struct {
	URL         string
	ChannelID   string
	Description string
	RSSFeed     string
	Title       string
	UserName    string
	PlaylistID  string
	ImageURL    string

	// FeedURLOverride, when set, is used as the feed URL as-is.
	FeedURLOverride string
}

// SendableVideo carries one parsed feed entry.
type SendableVideo struct {
	YoutubeID        string
	URL              string
	Title            string
	YoutubeChannelID string
	ThumbnailURL     string
	Description      string
	PublishedDate    *time.Time
	UpdatedDate      *time.Time
}

// SendableSubscription carries resolved feed data between the resolver and
// the writer. It is never stored directly.
type SendableSubscription struct {
	ID                  int64 // existing subscription, 0 for new candidates
	Link                string
	Title               string
	ChannelID           string
	PlaylistID          string
	UserName            string
	ThumbnailURL        string
	IsArchived          bool
	SubscribedDate      *time.Time
	MostRecentVideoDate *time.Time
	Videos              []SendableVideo
}

// Key returns the identity key of the candidate.
func (s SendableSubscription) Key() IdentityKey {
	return IdentityKey{ChannelID: s.ChannelID, PlaylistID: s.PlaylistID}
}

// Subscription converts the candidate into a new subscription record.
func (s SendableSubscription) Subscription(now time.Time) Subscription {
	subscribed := now
	if s.SubscribedDate != nil {
		subscribed = *s.SubscribedDate
	}
	return Subscription{
		Title:               s.Title,
		Link:                s.Link,
		ChannelID:           s.ChannelID,
		PlaylistID:          s.PlaylistID,
		UserName:            s.UserName,
		ThumbnailURL:        s.ThumbnailURL,
		SubscribedDate:      &subscribed,
		MostRecentVideoDate: s.MostRecentVideoDate,
	}
}

// SubscriptionState is the outcome of one resolution attempt.
type SubscriptionState struct {
	URL          string
	Title        string
	UserName     string
	ChannelID    string
	PlaylistID   string
	Success      bool
	AlreadyAdded bool
	Err          error
}

// RemovedDuplicatesInfo counts what a cleanup pass removed.
type RemovedDuplicatesInfo struct {
	CountVideos        int
	CountQueueEntries  int
	CountInboxEntries  int
	CountSubscriptions int
	CountChapters      int
}

// Total returns the sum of all counters.
func (i RemovedDuplicatesInfo) Total() int {
	return i.CountVideos + i.CountQueueEntries + i.CountInboxEntries + i.CountSubscriptions + i.CountChapters
}
