package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vidlib/internal/model"
)

// videoSelect loads a video with its first inbox and queue entry. The
// subscription ID is only set when the referenced subscription exists.
const videoSelect = `SELECT v.id, v.youtube_id, v.url, v.title, COALESCE(s.id, 0), v.youtube_channel_id,
	v.thumbnail_url, v.duration, v.elapsed_seconds, v.published_date, v.watched_date, v.bookmarked_date,
	v.defer_date, v.is_new, v.created_date,
	(SELECT i.id FROM inbox_entries i WHERE i.video_id = v.id ORDER BY i.id LIMIT 1),
	(SELECT i.date FROM inbox_entries i WHERE i.video_id = v.id ORDER BY i.id LIMIT 1),
	(SELECT q.id FROM queue_entries q WHERE q.video_id = v.id ORDER BY q.ord, q.id LIMIT 1),
	(SELECT q.ord FROM queue_entries q WHERE q.video_id = v.id ORDER BY q.ord, q.id LIMIT 1)
	FROM videos v LEFT JOIN subscriptions s ON s.id = v.subscription_id`

// ListVideos returns every video.
func (t *Tx) ListVideos(ctx context.Context) ([]model.Video, error) {
	return t.queryVideos(ctx, videoSelect+` ORDER BY v.id`)
}

// RecentVideos returns the limit most recently published videos.
func (t *Tx) RecentVideos(ctx context.Context, limit int) ([]model.Video, error) {
	return t.queryVideos(ctx, videoSelect+` ORDER BY v.published_date DESC, v.id DESC LIMIT ?`, limit)
}

// VideosBySubscription returns the videos referencing a subscription.
func (t *Tx) VideosBySubscription(ctx context.Context, subscriptionID int64) ([]model.Video, error) {
	return t.queryVideos(ctx, videoSelect+` WHERE v.subscription_id = ? ORDER BY v.id`, subscriptionID)
}

// VideoByYoutubeID returns the first video with the given YouTube ID.
func (t *Tx) VideoByYoutubeID(ctx context.Context, youtubeID string) (*model.Video, error) {
	row := t.tx.QueryRowContext(ctx, videoSelect+` WHERE v.youtube_id = ? ORDER BY v.id LIMIT 1`, youtubeID)
	return scanVideo(row)
}

// VideoByID returns a single video by its ID.
func (t *Tx) VideoByID(ctx context.Context, id int64) (*model.Video, error) {
	row := t.tx.QueryRowContext(ctx, videoSelect+` WHERE v.id = ?`, id)
	return scanVideo(row)
}

// InsertVideo inserts a video and populates its ID. Non-nil inbox and queue
// entries are inserted along with it.
func (t *Tx) InsertVideo(ctx context.Context, v *model.Video) error {
	if v.CreatedDate.IsZero() {
		v.CreatedDate = time.Now()
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO videos (youtube_id, url, title, subscription_id, youtube_channel_id, thumbnail_url,
		 duration, elapsed_seconds, published_date, watched_date, bookmarked_date, defer_date, is_new, created_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.YoutubeID, v.URL, v.Title, nullID(v.SubscriptionID), v.YoutubeChannelID, v.ThumbnailURL,
		v.Duration, v.ElapsedSeconds, nullTime(v.PublishedDate), nullTime(v.WatchedDate),
		nullTime(v.BookmarkedDate), nullTime(v.DeferDate), boolToInt(v.IsNew), formatTime(v.CreatedDate),
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	v.ID = id

	if v.InboxEntry != nil {
		v.InboxEntry.VideoID = id
		if err := t.InsertInboxEntry(ctx, v.InboxEntry); err != nil {
			return err
		}
	}
	if v.QueueEntry != nil {
		v.QueueEntry.VideoID = id
		if err := t.InsertQueueEntry(ctx, v.QueueEntry); err != nil {
			return err
		}
	}
	return nil
}

// SetVideoSubscription points a video at another subscription.
func (t *Tx) SetVideoSubscription(ctx context.Context, videoID, subscriptionID int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE videos SET subscription_id = ? WHERE id = ?`, nullID(subscriptionID), videoID)
	if err != nil {
		return fmt.Errorf("set video subscription: %w", err)
	}
	return nil
}

// DeleteVideo removes the video row only. Entries and chapters are not touched.
func (t *Tx) DeleteVideo(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

func (t *Tx) queryVideos(ctx context.Context, query string, args ...any) ([]model.Video, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

func scanVideo(row scannable) (*model.Video, error) {
	var v model.Video
	var published, watched, bookmarked, deferred, inboxDate sql.NullString
	var created string
	var isNew int
	var inboxID, queueID, queueOrder sql.NullInt64
	err := row.Scan(&v.ID, &v.YoutubeID, &v.URL, &v.Title, &v.SubscriptionID, &v.YoutubeChannelID,
		&v.ThumbnailURL, &v.Duration, &v.ElapsedSeconds, &published, &watched, &bookmarked,
		&deferred, &isNew, &created, &inboxID, &inboxDate, &queueID, &queueOrder)
	if err != nil {
		return nil, fmt.Errorf("scan video: %w", notFound(err))
	}
	v.PublishedDate = parseNullTime(published)
	v.WatchedDate = parseNullTime(watched)
	v.BookmarkedDate = parseNullTime(bookmarked)
	v.DeferDate = parseNullTime(deferred)
	v.IsNew = isNew == 1
	v.CreatedDate, _ = time.Parse(timeLayout, created)
	if inboxID.Valid {
		v.InboxEntry = &model.InboxEntry{ID: inboxID.Int64, VideoID: v.ID, Date: parseNullTime(inboxDate)}
	}
	if queueID.Valid {
		v.QueueEntry = &model.QueueEntry{ID: queueID.Int64, VideoID: v.ID, Order: int(queueOrder.Int64)}
	}
	return &v, nil
}
