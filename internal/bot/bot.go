// Package bot implements the Telegram front end: library commands and
// new-video notifications that are withdrawn when the video is deleted.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidlib/internal/config"
	"vidlib/internal/library"
	"vidlib/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles user commands and sends notifications.
type Bot struct {
	api   telegramAPI
	store storage.Storage
	lib   *library.Library
	cfg   *config.Config
	log   *slog.Logger

	// sendDelay spaces out notification messages.
	sendDelay time.Duration
}

// New creates a Bot with the given Telegram token, storage, library and config.
func New(token string, store storage.Storage, lib *library.Library, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:       api,
		store:     store,
		lib:       lib,
		cfg:       cfg,
		log:       log,
		sendDelay: 50 * time.Millisecond, // Telegram allows roughly 20 messages/sec
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat and returns its message ID.
func (b *Bot) SendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.SendMessage(chatID, text); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "subscribe":
		b.handleSubscribe(ctx, chatID, args)
	case cmdUnsubscribe:
		b.handleUnsubscribe(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID, args)
	case "cleanup":
		b.handleCleanup(ctx, chatID)
	case "dedupe":
		b.handleDedupe(ctx, chatID, args)
	case "refresh":
		b.handleRefresh(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
