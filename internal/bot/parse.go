package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vidlib/internal/feed"
)

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if s == "" {
		return 0, errors.New("subscription ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subscription ID %q", s)
	}
	return id, nil
}

// ParseUnsubscribeTarget extracts the channel or playlist ID named by a
// YouTube URL or a bare ID. Bare IDs starting with "UC" are channels, all
// others are playlists.
func ParseUnsubscribeTarget(args string) (channelID, playlistID string, err error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", "", errors.New("usage: /unsubscribe <id|url|channel_id|playlist_id>")
	}

	if strings.Contains(s, "://") {
		ref := feed.ParseReference(s)
		switch {
		case ref.PlaylistID != "":
			return "", ref.PlaylistID, nil
		case ref.ChannelID != "":
			return ref.ChannelID, "", nil
		case ref.UserName != "":
			return "", "", fmt.Errorf("user links cannot be unsubscribed, use /list and the subscription ID")
		default:
			return "", "", fmt.Errorf("no channel or playlist found in %q", s)
		}
	}

	if strings.ContainsAny(s, " \t") {
		return "", "", fmt.Errorf("invalid ID %q", s)
	}
	if strings.HasPrefix(s, "UC") {
		return s, "", nil
	}
	return "", s, nil
}

// ParseDedupeArgs reports whether /dedupe should only look at videos.
func ParseDedupeArgs(args string) (videoOnly bool, err error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
		return true, nil
	case "full":
		return false, nil
	default:
		return false, errors.New("usage: /dedupe [full]")
	}
}
