// Package scheduler runs feed refreshes and library maintenance periodically.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"vidlib/internal/model"
)

// Library is the set of library operations the scheduler drives.
type Library interface {
	Refresh(ctx context.Context) ([]model.Video, error)
	RemoveDuplicates(ctx context.Context, quickCheck, videoOnly bool) (model.RemovedDuplicatesInfo, error)
	CleanupInboxEntryDates(ctx context.Context) error
	ClearOldInboxEntries(ctx context.Context, keep int) (int, error)
}

// Notifier announces newly inboxed videos.
type Notifier interface {
	NotifyVideos(ctx context.Context, videos []model.Video)
}

// Options configures the scheduler intervals.
type Options struct {
	RefreshInterval     time.Duration
	MaintenanceInterval time.Duration
	// InboxKeep is the number of newest inbox entries kept by maintenance.
	// Zero disables trimming.
	InboxKeep int
}

// Scheduler periodically refreshes feeds and cleans up the library.
type Scheduler struct {
	lib      Library
	notifier Notifier
	log      *slog.Logger

	refreshEvery     time.Duration
	maintenanceEvery time.Duration
	inboxKeep        int
}

// New creates a Scheduler. notifier may be nil.
func New(lib Library, notifier Notifier, log *slog.Logger, opts Options) *Scheduler {
	s := &Scheduler{
		lib:              lib,
		notifier:         notifier,
		log:              log,
		refreshEvery:     30 * time.Minute,
		maintenanceEvery: 6 * time.Hour,
		inboxKeep:        opts.InboxKeep,
	}
	if opts.RefreshInterval > 0 {
		s.refreshEvery = opts.RefreshInterval
	}
	if opts.MaintenanceInterval > 0 {
		s.maintenanceEvery = opts.MaintenanceInterval
	}
	return s
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.refresh(ctx)

	refresh := time.NewTicker(s.refreshEvery)
	defer refresh.Stop()
	maintenance := time.NewTicker(s.maintenanceEvery)
	defer maintenance.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			s.refresh(ctx)
		case <-maintenance.C:
			s.maintain(ctx)
		}
	}
}

// refresh loads new videos, announces them and runs the quick video check.
func (s *Scheduler) refresh(ctx context.Context) {
	videos, err := s.lib.Refresh(ctx)
	if err != nil {
		s.log.Error("refresh feeds", "error", err)
		return
	}
	if len(videos) > 0 && s.notifier != nil {
		s.notifier.NotifyVideos(ctx, videos)
	}
	if ctx.Err() != nil {
		return
	}

	info, err := s.lib.RemoveDuplicates(ctx, true, true)
	if err != nil {
		s.log.Error("quick duplicate check", "error", err)
	} else if info.Total() > 0 {
		s.log.Info("removed duplicates after refresh", "videos", info.CountVideos, "inbox_entries", info.CountInboxEntries)
	}

	if err := s.lib.CleanupInboxEntryDates(ctx); err != nil {
		s.log.Error("cleanup inbox entry dates", "error", err)
	}
}

// maintain runs the full cleanup pass.
func (s *Scheduler) maintain(ctx context.Context) {
	info, err := s.lib.RemoveDuplicates(ctx, false, false)
	if err != nil {
		s.log.Error("remove duplicates", "error", err)
	} else {
		s.log.Info("maintenance finished",
			"videos", info.CountVideos,
			"subscriptions", info.CountSubscriptions,
			"inbox_entries", info.CountInboxEntries,
			"queue_entries", info.CountQueueEntries,
			"chapters", info.CountChapters,
		)
	}

	if s.inboxKeep > 0 {
		if _, err := s.lib.ClearOldInboxEntries(ctx, s.inboxKeep); err != nil {
			s.log.Error("clear old inbox entries", "error", err)
		}
	}
}
