// Package config handles application configuration from environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken      string
	DatabasePath          string
	LogLevel              string
	AllowedUsers          []int64
	NotifyChats           []int64
	YouTubeAPIKey         string
	HTTPAddr              string
	RefreshInterval       time.Duration
	MaintenanceInterval   time.Duration
	RecentVideoDedupe     int
	MaxConcurrentResolves int
	InboxKeep             int
}

func defaults(v *viper.Viper) {
	v.SetDefault("DATABASE_PATH", "./data/library.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("REFRESH_INTERVAL", "30m")
	v.SetDefault("MAINTENANCE_INTERVAL", "6h")
	v.SetDefault("RECENT_VIDEO_DEDUPE_CHECK", 50)
	v.SetDefault("MAX_CONCURRENT_RESOLVES", 8)
	v.SetDefault("INBOX_KEEP", 0)
}

// Load reads configuration from environment variables. When CONFIG_FILE is
// set, values from that YAML file are used where no variable overrides them.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	allowedUsers, err := parseIDs(v.GetString("ALLOWED_USERS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_USERS: %w", err)
	}
	notifyChats, err := parseIDs(v.GetString("NOTIFY_CHATS"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_CHATS: %w", err)
	}

	cfg := &Config{
		TelegramBotToken:      v.GetString("TELEGRAM_BOT_TOKEN"),
		DatabasePath:          v.GetString("DATABASE_PATH"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		AllowedUsers:          allowedUsers,
		NotifyChats:           notifyChats,
		YouTubeAPIKey:         v.GetString("YOUTUBE_API_KEY"),
		HTTPAddr:              v.GetString("HTTP_ADDR"),
		RefreshInterval:       v.GetDuration("REFRESH_INTERVAL"),
		MaintenanceInterval:   v.GetDuration("MAINTENANCE_INTERVAL"),
		RecentVideoDedupe:     v.GetInt("RECENT_VIDEO_DEDUPE_CHECK"),
		MaxConcurrentResolves: v.GetInt("MAX_CONCURRENT_RESOLVES"),
		InboxKeep:             v.GetInt("INBOX_KEEP"),
	}

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %q", v.GetString("REFRESH_INTERVAL"))
	}
	if cfg.MaintenanceInterval <= 0 {
		return nil, fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got %q", v.GetString("MAINTENANCE_INTERVAL"))
	}
	if cfg.MaxConcurrentResolves < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_RESOLVES must be at least 1, got %d", cfg.MaxConcurrentResolves)
	}
	if cfg.InboxKeep < 0 {
		return nil, fmt.Errorf("INBOX_KEEP must not be negative, got %d", cfg.InboxKeep)
	}
	return cfg, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	return len(c.AllowedUsers) == 0 || slices.Contains(c.AllowedUsers, userID)
}

// BotEnabled reports whether a Telegram bot token is configured.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}
