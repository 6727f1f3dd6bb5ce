package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"vidlib/internal/api"
	"vidlib/internal/bot"
	"vidlib/internal/config"
	"vidlib/internal/feed"
	"vidlib/internal/library"
	"vidlib/internal/scheduler"
	"vidlib/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var lookup library.ChannelLookup
	if cfg.YouTubeAPIKey != "" {
		yt, err := feed.NewYouTubeLookup(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Error("create youtube lookup", "error", err)
			os.Exit(1)
		}
		lookup = yt
	} else {
		log.Warn("YOUTUBE_API_KEY not set, user name links cannot be resolved")
	}

	lib := library.New(store, feed.New(http.DefaultClient), lookup, log, library.Options{
		RecentVideoWindow: cfg.RecentVideoDedupe,
		MaxConcurrent:     cfg.MaxConcurrentResolves,
	})

	var b *bot.Bot
	if cfg.BotEnabled() {
		b, err = bot.New(cfg.TelegramBotToken, store, lib, cfg, log)
		if err != nil {
			log.Error("create bot", "error", err)
			os.Exit(1)
		}
		lib.SetNotifier(b)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	// Keep the interfaces nil when the bot is disabled.
	var schedNotifier scheduler.Notifier
	var apiNotifier api.Notifier
	if b != nil {
		schedNotifier = b
		apiNotifier = b
	}

	sched := scheduler.New(lib, schedNotifier, log, scheduler.Options{
		RefreshInterval:     cfg.RefreshInterval,
		MaintenanceInterval: cfg.MaintenanceInterval,
		InboxKeep:           cfg.InboxKeep,
	})
	srv := api.New(lib, apiNotifier, log)

	log.Info("starting library daemon", "http_addr", cfg.HTTPAddr, "bot", b != nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	if b != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx)
		}()
	}

	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server", "error", err)
		cancel()
	}

	wg.Wait()
	log.Info("library daemon stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
