// Package model defines the domain types used across the application.
package model

import "time"

// IdentityKey identifies a subscription. Either field may be empty.
type IdentityKey struct {
	ChannelID  string
	PlaylistID string
}

// Subscription represents a subscribed channel or playlist feed.
type Subscription struct {
	ID                  int64
	Title               string
	Link                string
	ChannelID           string
	PlaylistID          string
	UserName            string
	ThumbnailURL        string
	IsArchived          bool
	SubscribedDate      *time.Time
	MostRecentVideoDate *time.Time

	// VideoCount is the number of videos referencing this subscription.
	// It is populated on read and ignored on write.
	VideoCount int
}

// Key returns the identity key of the subscription.
func (s Subscription) Key() IdentityKey {
	return IdentityKey{ChannelID: s.ChannelID, PlaylistID: s.PlaylistID}
}

// Video represents a single video of a subscription.
type Video struct {
	ID               int64
	YoutubeID        string
	URL              string
	Title            string
	SubscriptionID   int64 // 0 when the video has no (existing) subscription
	YoutubeChannelID string
	ThumbnailURL     string
	Duration         float64
	ElapsedSeconds   float64
	PublishedDate    *time.Time
	WatchedDate      *time.Time
	BookmarkedDate   *time.Time
	DeferDate        *time.Time
	IsNew            bool
	CreatedDate      time.Time

	InboxEntry *InboxEntry
	QueueEntry *QueueEntry
}

// HasUserState reports whether the video carries state worth keeping:
// a queue or inbox placement, a watch date or a bookmark.
func (v Video) HasUserState() bool {
	return v.QueueEntry != nil || v.InboxEntry != nil || v.WatchedDate != nil || v.BookmarkedDate != nil
}

// InboxEntry places a video in the inbox.
type InboxEntry struct {
	ID      int64
	VideoID int64 // 0 when orphaned
	Date    *time.Time
}

// QueueEntry places a video in the queue.
type QueueEntry struct {
	ID      int64
	VideoID int64 // 0 when orphaned
	Order   int
}

// Chapter is a raw or merged (sponsor adjusted) chapter of a video.
// At most one of VideoID and MergedVideoID is set.
type Chapter struct {
	ID            int64
	VideoID       int64
	MergedVideoID int64
	Title         string
	StartTime     float64
	EndTime       float64
	Category      string
}

// Notification records a message sent for a video so it can be withdrawn.
type Notification struct {
	YoutubeID string
	ChatID    int64
	MessageID int
	SentAt    time.Time
}
