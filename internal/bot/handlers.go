package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidlib/internal/library"
	"vidlib/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the video library bot!

Follow YouTube channels and playlists and get notified about new videos.

Quick start:
1. /subscribe <url> — follow a channel or playlist
2. /list — show what you follow
3. /refresh — check all feeds now

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Subscriptions:
/subscribe <url> — follow a channel, user, playlist or feed URL
/unsubscribe <id|url|channel_id|playlist_id> — stop following
/list [search] — show active subscriptions

Maintenance:
/refresh — check all feeds for new videos
/cleanup — remove archived subscriptions that have no kept videos
/dedupe [full] — remove duplicate videos (full: also subscriptions and orphans)`)
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /subscribe <url>")
		return
	}

	if err := b.lib.Subscribe(ctx, &model.SubscriptionInfo{URL: args}, 0); err != nil {
		b.log.Warn("subscribe", "url", args, "chat_id", chatID, "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscribed to %s\nUse /list to see your subscriptions.", args))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64, args string) {
	if id, err := ParseIDArg(args); err == nil {
		b.confirmUnsubscribe(ctx, chatID, id)
		return
	}

	channelID, playlistID, err := ParseUnsubscribeTarget(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.lib.Unsubscribe(ctx, channelID, playlistID); err != nil {
		b.log.Warn("unsubscribe", "channel_id", channelID, "playlist_id", playlistID, "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, "Unsubscribed.")
}

func (b *Bot) confirmUnsubscribe(ctx context.Context, chatID, id int64) {
	sub, ok := b.findActive(ctx, chatID, id)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Unsubscribe from #%d \"%s\"? Videos you kept stay in the library.", id, sub.Title))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, unsubscribe", fmt.Sprintf("%s:%d", cmdUnsubscribe, id)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send unsubscribe confirmation", "error", err)
	}
}

func (b *Bot) removeSubscription(ctx context.Context, chatID, id int64) {
	sub, ok := b.findActive(ctx, chatID, id)
	if !ok {
		return
	}
	if err := b.lib.DeleteSubscriptions(ctx, []int64{id}); err != nil {
		b.log.Error("delete subscription", "subscription_id", id, "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Unsubscribed from #%d \"%s\".", id, sub.Title))
}

func (b *Bot) findActive(ctx context.Context, chatID, id int64) (model.Subscription, bool) {
	subs, err := b.lib.ActiveSubscriptions(ctx, "")
	if err != nil {
		b.log.Error("list subscriptions", "error", err)
		b.reply(chatID, library.UserMessage(err))
		return model.Subscription{}, false
	}
	for _, sub := range subs {
		if sub.ID == id {
			return sub, true
		}
	}
	b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
	return model.Subscription{}, false
}

func (b *Bot) handleList(ctx context.Context, chatID int64, search string) {
	subs, err := b.lib.ActiveSubscriptions(ctx, search)
	if err != nil {
		b.log.Error("list subscriptions", "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, FormatSubscriptionList(subs, search))
}

func (b *Bot) handleCleanup(ctx context.Context, chatID int64) {
	if err := b.lib.CleanupArchivedSubscriptions(ctx); err != nil {
		b.log.Error("cleanup archived subscriptions", "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, "Archived subscriptions cleaned up.")
}

func (b *Bot) handleDedupe(ctx context.Context, chatID int64, args string) {
	videoOnly, err := ParseDedupeArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	info, err := b.lib.RemoveDuplicates(ctx, false, videoOnly)
	if err != nil {
		b.log.Error("remove duplicates", "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	b.reply(chatID, FormatRemovedDuplicates(info))
}

func (b *Bot) handleRefresh(ctx context.Context, chatID int64) {
	videos, err := b.lib.Refresh(ctx)
	if err != nil {
		b.log.Error("refresh", "error", err)
		b.reply(chatID, library.UserMessage(err))
		return
	}
	if len(videos) == 0 {
		b.reply(chatID, "No new videos.")
		return
	}
	b.NotifyVideos(ctx, videos)
	b.reply(chatID, fmt.Sprintf("Found %d new video(s).", len(videos)))
}
