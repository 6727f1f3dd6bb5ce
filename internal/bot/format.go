package bot

import (
	"fmt"
	"strings"

	"vidlib/internal/model"
)

// FormatVideoNotification formats a new video as a Telegram notification message.
func FormatVideoNotification(v model.Video) string {
	var b strings.Builder
	b.WriteString(v.Title)
	if v.PublishedDate != nil {
		fmt.Fprintf(&b, "\n%s", v.PublishedDate.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if v.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(v.URL)
	}
	return b.String()
}

// FormatSubscriptionList formats active subscriptions for display.
func FormatSubscriptionList(subs []model.Subscription, search string) string {
	if len(subs) == 0 {
		if search != "" {
			return fmt.Sprintf("No subscriptions match %q.", search)
		}
		return "You have no subscriptions yet. Use /subscribe <url> to add one."
	}
	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, s := range subs {
		fmt.Fprintf(&b, "\n#%d %s  (%s)\n", s.ID, s.Title, plural(s.VideoCount, "video"))
		switch {
		case s.PlaylistID != "":
			fmt.Fprintf(&b, "   playlist %s\n", s.PlaylistID)
		case s.ChannelID != "":
			fmt.Fprintf(&b, "   channel %s\n", s.ChannelID)
		}
	}
	return b.String()
}

// FormatRemovedDuplicates summarizes a cleanup pass.
func FormatRemovedDuplicates(info model.RemovedDuplicatesInfo) string {
	if info.Total() == 0 {
		return "Nothing to clean up."
	}
	var b strings.Builder
	b.WriteString("Removed:")
	for _, c := range []struct {
		n    int
		noun string
	}{
		{info.CountVideos, "video"},
		{info.CountSubscriptions, "subscription"},
		{info.CountInboxEntries, "inbox entry"},
		{info.CountQueueEntries, "queue entry"},
		{info.CountChapters, "chapter"},
	} {
		if c.n > 0 {
			fmt.Fprintf(&b, "\n  %s", plural(c.n, c.noun))
		}
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "entry") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
