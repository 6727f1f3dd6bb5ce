package feed

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeLookup resolves user names to channel IDs through the YouTube Data API.
type YouTubeLookup struct {
	service *youtube.Service
}

// NewYouTubeLookup creates a lookup authenticated with an API key.
func NewYouTubeLookup(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeLookup, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTubeLookup{service: svc}, nil
}

// ChannelIDForUsername returns the channel ID of a legacy user name.
func (y *YouTubeLookup) ChannelIDForUsername(ctx context.Context, userName string) (string, error) {
	resp, err := y.service.Channels.
		List([]string{"id"}).
		ForUsername(userName).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == "" {
		return "", fmt.Errorf("no channel found for user %q", userName)
	}
	return resp.Items[0].Id, nil
}
