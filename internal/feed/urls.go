package feed

import (
	"net/url"
	"strings"

	"vidlib/internal/model"
)

const feedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// Reference holds the identifiers found in a YouTube page URL.
type Reference struct {
	ChannelID  string
	UserName   string
	PlaylistID string
}

// Empty reports whether no identifier was found.
func (r Reference) Empty() bool {
	return r.ChannelID == "" && r.UserName == "" && r.PlaylistID == ""
}

// ChannelFeedURL returns the feed URL of a channel.
func ChannelFeedURL(channelID string) string {
	return feedBaseURL + "?channel_id=" + url.QueryEscape(channelID)
}

// PlaylistFeedURL returns the feed URL of a playlist.
func PlaylistFeedURL(playlistID string) string {
	return feedBaseURL + "?playlist_id=" + url.QueryEscape(playlistID)
}

// WatchURL returns the canonical watch URL of a video.
func WatchURL(youtubeID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(youtubeID)
}

// IsFeedURL reports whether raw points at a YouTube channel or playlist feed.
func IsFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return isYoutubeHost(u.Host) && strings.TrimSuffix(u.Path, "/") == "/feeds/videos.xml"
}

// FeedIdentity extracts the identity key from a feed URL's query.
func FeedIdentity(raw string) model.IdentityKey {
	u, err := url.Parse(raw)
	if err != nil {
		return model.IdentityKey{}
	}
	q := u.Query()
	return model.IdentityKey{ChannelID: q.Get("channel_id"), PlaylistID: q.Get("playlist_id")}
}

// ParseReference extracts channel, user and playlist identifiers from a
// YouTube page URL such as /channel/UC..., /user/name, /@handle or ?list=PL...
func ParseReference(raw string) Reference {
	u, err := url.Parse(raw)
	if err != nil || !isYoutubeHost(u.Host) {
		return Reference{}
	}

	var ref Reference
	if IsFeedURL(raw) {
		key := FeedIdentity(raw)
		ref.ChannelID, ref.PlaylistID = key.ChannelID, key.PlaylistID
		return ref
	}

	ref.PlaylistID = u.Query().Get("list")

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "channel":
		ref.ChannelID = parts[1]
	case len(parts) >= 2 && (parts[0] == "user" || parts[0] == "c"):
		ref.UserName = parts[1]
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
		ref.UserName = strings.TrimPrefix(parts[0], "@")
	}
	return ref
}

// VideoIDFromURL returns the video ID of a watch, short or youtu.be URL.
func VideoIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if strings.EqualFold(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	if !isYoutubeHost(u.Host) {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
		return parts[1]
	}
	return ""
}

func isYoutubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}
