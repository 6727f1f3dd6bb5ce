package storage

import (
	"context"
	"database/sql"
	"fmt"

	"vidlib/internal/model"
)

// InsertInboxEntry inserts an inbox entry and populates its ID.
func (t *Tx) InsertInboxEntry(ctx context.Context, e *model.InboxEntry) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO inbox_entries (video_id, date) VALUES (?, ?)`,
		nullID(e.VideoID), nullTime(e.Date),
	)
	if err != nil {
		return fmt.Errorf("insert inbox entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// DeleteInboxEntry removes a single inbox entry.
func (t *Tx) DeleteInboxEntry(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM inbox_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete inbox entry: %w", err)
	}
	return nil
}

// DeleteInboxEntriesForVideo removes every inbox entry of a video.
func (t *Tx) DeleteInboxEntriesForVideo(ctx context.Context, videoID int64) (int64, error) {
	return t.execCount(ctx, "delete inbox entries", `DELETE FROM inbox_entries WHERE video_id = ?`, videoID)
}

// OrphanInboxEntries returns inbox entries that reference no existing video.
func (t *Tx) OrphanInboxEntries(ctx context.Context) ([]model.InboxEntry, error) {
	return t.queryInboxEntries(ctx,
		`SELECT id, video_id, date FROM inbox_entries
		 WHERE video_id IS NULL OR NOT EXISTS (SELECT 1 FROM videos v WHERE v.id = inbox_entries.video_id)
		 ORDER BY id`)
}

// InboxEntriesNewestFirst returns all inbox entries ordered by date, newest first.
func (t *Tx) InboxEntriesNewestFirst(ctx context.Context) ([]model.InboxEntry, error) {
	return t.queryInboxEntries(ctx,
		`SELECT id, video_id, date FROM inbox_entries ORDER BY date IS NULL, date DESC, id DESC`)
}

// FillInboxEntryDates sets missing inbox entry dates to the publish date of
// their video and returns the number of updated entries.
func (t *Tx) FillInboxEntryDates(ctx context.Context) (int64, error) {
	return t.execCount(ctx, "fill inbox entry dates",
		`UPDATE inbox_entries
		 SET date = (SELECT v.published_date FROM videos v WHERE v.id = inbox_entries.video_id)
		 WHERE date IS NULL AND video_id IS NOT NULL`)
}

// InsertQueueEntry inserts a queue entry and populates its ID.
func (t *Tx) InsertQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO queue_entries (video_id, ord) VALUES (?, ?)`,
		nullID(e.VideoID), e.Order,
	)
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// DeleteQueueEntry removes a single queue entry.
func (t *Tx) DeleteQueueEntry(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete queue entry: %w", err)
	}
	return nil
}

// DeleteQueueEntriesForVideo removes every queue entry of a video.
func (t *Tx) DeleteQueueEntriesForVideo(ctx context.Context, videoID int64) (int64, error) {
	return t.execCount(ctx, "delete queue entries", `DELETE FROM queue_entries WHERE video_id = ?`, videoID)
}

// OrphanQueueEntries returns queue entries that reference no existing video.
func (t *Tx) OrphanQueueEntries(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, video_id, ord FROM queue_entries
		 WHERE video_id IS NULL OR NOT EXISTS (SELECT 1 FROM videos v WHERE v.id = queue_entries.video_id)
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query queue entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		var videoID sql.NullInt64
		if err := rows.Scan(&e.ID, &videoID, &e.Order); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.VideoID = videoID.Int64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InsertChapter inserts a chapter and populates its ID.
func (t *Tx) InsertChapter(ctx context.Context, c *model.Chapter) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO chapters (video_id, merged_video_id, title, start_time, end_time, category)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(c.VideoID), nullID(c.MergedVideoID), c.Title, c.StartTime, c.EndTime, c.Category,
	)
	if err != nil {
		return fmt.Errorf("insert chapter: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// ChaptersForVideo returns the raw and merged chapters of a video.
func (t *Tx) ChaptersForVideo(ctx context.Context, videoID int64) ([]model.Chapter, error) {
	return t.queryChapters(ctx,
		`SELECT id, video_id, merged_video_id, title, start_time, end_time, category FROM chapters
		 WHERE video_id = ? OR merged_video_id = ? ORDER BY start_time, id`,
		videoID, videoID)
}

// DeleteChaptersForVideo removes the raw and merged chapters of a video.
func (t *Tx) DeleteChaptersForVideo(ctx context.Context, videoID int64) (int64, error) {
	return t.execCount(ctx, "delete chapters",
		`DELETE FROM chapters WHERE video_id = ? OR merged_video_id = ?`, videoID, videoID)
}

// OrphanChapters returns chapters that belong to no existing video on
// either ownership edge.
func (t *Tx) OrphanChapters(ctx context.Context) ([]model.Chapter, error) {
	return t.queryChapters(ctx,
		`SELECT id, video_id, merged_video_id, title, start_time, end_time, category FROM chapters
		 WHERE (video_id IS NULL OR NOT EXISTS (SELECT 1 FROM videos v WHERE v.id = chapters.video_id))
		   AND (merged_video_id IS NULL OR NOT EXISTS (SELECT 1 FROM videos v WHERE v.id = chapters.merged_video_id))
		 ORDER BY id`)
}

// DeleteChapter removes a single chapter.
func (t *Tx) DeleteChapter(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}

func (t *Tx) queryInboxEntries(ctx context.Context, query string, args ...any) ([]model.InboxEntry, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inbox entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.InboxEntry
	for rows.Next() {
		var e model.InboxEntry
		var videoID sql.NullInt64
		var date sql.NullString
		if err := rows.Scan(&e.ID, &videoID, &date); err != nil {
			return nil, fmt.Errorf("scan inbox entry: %w", err)
		}
		e.VideoID = videoID.Int64
		e.Date = parseNullTime(date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *Tx) queryChapters(ctx context.Context, query string, args ...any) ([]model.Chapter, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chapters []model.Chapter
	for rows.Next() {
		var c model.Chapter
		var videoID, mergedID sql.NullInt64
		if err := rows.Scan(&c.ID, &videoID, &mergedID, &c.Title, &c.StartTime, &c.EndTime, &c.Category); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		c.VideoID = videoID.Int64
		c.MergedVideoID = mergedID.Int64
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (t *Tx) execCount(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
