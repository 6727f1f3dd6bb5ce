// Package feed handles YouTube feed downloading, parsing and URL derivation.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"vidlib/internal/model"
)

const maxFeedSize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Crawler downloads and parses channel and playlist feeds.
type Crawler struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Crawler with the given HTTP client.
func New(client HTTPClient) *Crawler {
	return &Crawler{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads and parses a feed from the given URL.
func (c *Crawler) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "vidlib/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// LoadSubscription fetches feedURL and turns it into a subscription candidate
// carrying the feed's videos.
func (c *Crawler) LoadSubscription(ctx context.Context, feedURL string) (*model.SendableSubscription, error) {
	f, err := c.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return ToSubscription(f, feedURL), nil
}

// ToSubscription converts a parsed YouTube feed into a candidate.
func ToSubscription(f *gofeed.Feed, feedURL string) *model.SendableSubscription {
	key := FeedIdentity(feedURL)
	sub := &model.SendableSubscription{
		Link:       feedURL,
		Title:      strings.TrimSpace(f.Title),
		ChannelID:  extValue(f.Extensions, "yt", "channelId"),
		PlaylistID: extValue(f.Extensions, "yt", "playlistId"),
	}
	if sub.ChannelID == "" {
		sub.ChannelID = key.ChannelID
	}
	if sub.PlaylistID == "" {
		sub.PlaylistID = key.PlaylistID
	}
	if f.Image != nil {
		sub.ThumbnailURL = f.Image.URL
	}

	for _, item := range f.Items {
		v, ok := toVideo(item)
		if !ok {
			continue
		}
		if v.YoutubeChannelID == "" {
			v.YoutubeChannelID = sub.ChannelID
		}
		sub.Videos = append(sub.Videos, v)
	}
	return sub
}

func toVideo(item *gofeed.Item) (model.SendableVideo, bool) {
	id := extValue(item.Extensions, "yt", "videoId")
	if id == "" {
		id = VideoIDFromURL(item.Link)
	}
	if id == "" {
		id = strings.TrimPrefix(item.GUID, "yt:video:")
	}
	if id == "" {
		return model.SendableVideo{}, false
	}

	v := model.SendableVideo{
		YoutubeID:        id,
		URL:              item.Link,
		Title:            strings.TrimSpace(item.Title),
		YoutubeChannelID: extValue(item.Extensions, "yt", "channelId"),
		ThumbnailURL:     mediaThumbnail(item),
		Description:      mediaDescription(item),
		PublishedDate:    item.PublishedParsed,
		UpdatedDate:      item.UpdatedParsed,
	}
	if v.URL == "" {
		v.URL = WatchURL(id)
	}
	return v, true
}

func extValue(exts ext.Extensions, prefix, name string) string {
	values := exts[prefix][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func mediaThumbnail(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if u := thumb.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

func mediaDescription(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		for _, desc := range group.Children["description"] {
			if desc.Value != "" {
				return desc.Value
			}
		}
	}
	return item.Description
}
