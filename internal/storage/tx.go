package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vidlib/internal/model"
)

// Tx is a scoped store transaction. All library reads and writes go through it.
type Tx struct {
	tx *sql.Tx
}

// Savepoint runs fn inside a named savepoint. When fn fails only its own
// writes are rolled back; the surrounding transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to %s: %w", name, rbErr))
		}
		_, _ = t.tx.ExecContext(ctx, "RELEASE "+name)
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

const subscriptionSelect = `SELECT s.id, s.title, s.link, s.channel_id, s.playlist_id, s.user_name,
	s.thumbnail_url, s.is_archived, s.subscribed_date, s.most_recent_video_date,
	(SELECT COUNT(*) FROM videos v WHERE v.subscription_id = s.id)
	FROM subscriptions s`

// SubscriptionByID returns a single subscription by its ID.
func (t *Tx) SubscriptionByID(ctx context.Context, id int64) (*model.Subscription, error) {
	row := t.tx.QueryRowContext(ctx, subscriptionSelect+` WHERE s.id = ?`, id)
	return scanSubscription(row)
}

// FindSubscription returns the subscription matching key. A playlist ID
// matches on the playlist alone; a channel ID only matches channel
// subscriptions without a playlist. Active records are preferred.
func (t *Tx) FindSubscription(ctx context.Context, key model.IdentityKey) (*model.Subscription, error) {
	var row *sql.Row
	switch {
	case key.PlaylistID != "":
		row = t.tx.QueryRowContext(ctx,
			subscriptionSelect+` WHERE s.playlist_id = ? ORDER BY s.is_archived, s.id LIMIT 1`,
			key.PlaylistID)
	case key.ChannelID != "":
		row = t.tx.QueryRowContext(ctx,
			subscriptionSelect+` WHERE s.playlist_id IS NULL AND s.channel_id = ? ORDER BY s.is_archived, s.id LIMIT 1`,
			key.ChannelID)
	default:
		return nil, ErrNotFound
	}
	return scanSubscription(row)
}

// ListSubscriptions returns every subscription.
func (t *Tx) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return t.querySubscriptions(ctx, subscriptionSelect+` ORDER BY s.id`)
}

// ListArchivedSubscriptions returns every archived subscription.
func (t *Tx) ListArchivedSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return t.querySubscriptions(ctx, subscriptionSelect+` WHERE s.is_archived = 1 ORDER BY s.id`)
}

// ListActiveSubscriptions returns non-archived subscriptions whose title
// contains search (case insensitive). An empty search matches all.
func (t *Tx) ListActiveSubscriptions(ctx context.Context, search string) ([]model.Subscription, error) {
	return t.querySubscriptions(ctx,
		subscriptionSelect+` WHERE s.is_archived = 0 AND (? = '' OR s.title LIKE '%' || ? || '%')
		 ORDER BY s.title COLLATE NOCASE, s.id`,
		search, search)
}

// SubscriptionsMatching returns subscriptions with the given channel ID or
// the given playlist ID. Empty arguments never match.
func (t *Tx) SubscriptionsMatching(ctx context.Context, channelID, playlistID string) ([]model.Subscription, error) {
	return t.querySubscriptions(ctx,
		subscriptionSelect+` WHERE (? <> '' AND s.channel_id = ?) OR (? <> '' AND s.playlist_id = ?) ORDER BY s.id`,
		channelID, channelID, playlistID, playlistID)
}

// InsertSubscription inserts a new subscription and populates its ID.
func (t *Tx) InsertSubscription(ctx context.Context, sub *model.Subscription) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO subscriptions (title, link, channel_id, playlist_id, user_name, thumbnail_url,
		 is_archived, subscribed_date, most_recent_video_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Title, sub.Link, nullString(sub.ChannelID), nullString(sub.PlaylistID), sub.UserName,
		sub.ThumbnailURL, boolToInt(sub.IsArchived), nullTime(sub.SubscribedDate), nullTime(sub.MostRecentVideoDate),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	return nil
}

// UpdateSubscription persists changes to an existing subscription.
func (t *Tx) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE subscriptions SET title = ?, link = ?, channel_id = ?, playlist_id = ?, user_name = ?,
		 thumbnail_url = ?, is_archived = ?, subscribed_date = ?, most_recent_video_date = ?
		 WHERE id = ?`,
		sub.Title, sub.Link, nullString(sub.ChannelID), nullString(sub.PlaylistID), sub.UserName,
		sub.ThumbnailURL, boolToInt(sub.IsArchived), nullTime(sub.SubscribedDate), nullTime(sub.MostRecentVideoDate),
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes the subscription row only. Videos are not touched.
func (t *Tx) DeleteSubscription(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (t *Tx) querySubscriptions(ctx context.Context, query string, args ...any) ([]model.Subscription, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var s model.Subscription
	var channelID, playlistID, subscribed, mostRecent sql.NullString
	var archived int
	err := row.Scan(&s.ID, &s.Title, &s.Link, &channelID, &playlistID, &s.UserName,
		&s.ThumbnailURL, &archived, &subscribed, &mostRecent, &s.VideoCount)
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", notFound(err))
	}
	s.ChannelID = channelID.String
	s.PlaylistID = playlistID.String
	s.IsArchived = archived == 1
	s.SubscribedDate = parseNullTime(subscribed)
	s.MostRecentVideoDate = parseNullTime(mostRecent)
	return &s, nil
}
