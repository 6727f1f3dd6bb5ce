package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidlib/internal/model"
)

// NotifyVideos sends one message per video to every notification chat and
// records the sent messages so they can be withdrawn later.
func (b *Bot) NotifyVideos(ctx context.Context, videos []model.Video) {
	sent := 0
	for _, v := range videos {
		text := FormatVideoNotification(v)
		for _, chatID := range b.cfg.NotifyChats {
			if ctx.Err() != nil {
				return
			}
			messageID, err := b.SendMessage(chatID, text)
			if err != nil {
				b.log.Error("send video notification", "youtube_id", v.YoutubeID, "chat_id", chatID, "error", err)
				continue
			}
			sent++

			n := model.Notification{YoutubeID: v.YoutubeID, ChatID: chatID, MessageID: messageID, SentAt: time.Now()}
			if err := b.store.RecordNotification(ctx, n); err != nil {
				b.log.Error("record notification", "youtube_id", v.YoutubeID, "chat_id", chatID, "error", err)
			}

			if b.sendDelay > 0 {
				time.Sleep(b.sendDelay)
			}
		}
	}
	if sent > 0 {
		b.log.Info("sent notifications", "videos", len(videos), "messages", sent)
	}
}

// CancelVideoNotification deletes the messages sent for a video. Records are
// forgotten even when some messages could not be deleted.
func (b *Bot) CancelVideoNotification(ctx context.Context, youtubeID string) error {
	sent, err := b.store.NotificationsForVideo(ctx, youtubeID)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	if len(sent) == 0 {
		return nil
	}

	var errs []error
	for _, n := range sent {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(n.ChatID, n.MessageID)); err != nil {
			errs = append(errs, fmt.Errorf("delete message %d in chat %d: %w", n.MessageID, n.ChatID, err))
		}
	}
	if err := b.store.DeleteNotifications(ctx, youtubeID); err != nil {
		errs = append(errs, err)
	}
	b.log.Debug("cancelled video notification", "youtube_id", youtubeID, "messages", len(sent))
	return errors.Join(errs...)
}
