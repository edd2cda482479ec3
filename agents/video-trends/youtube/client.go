package youtube

import (
	"context"
	"fmt"
	"log"
	"time"

	"video-trend-agent/internal/models"
	"video-trend-agent/shared/config"
	"video-trend-agent/shared/jst"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// MaxResultsCeiling bounds how many ids a single keyword search collects.
	MaxResultsCeiling = 100
	// batchSize is the API limit for search pages and ids per videos.list call.
	batchSize = 50

	zeroPeriod = "PT0S"
)

type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
}

// NewClient creates a YouTube Data API client authenticated with an API key.
// Extra options are appended last, so tests can point it at a fake server.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// SearchVideos returns the videos matching keyword that were published inside
// window, collecting at most maxResults search hits. Any API error aborts the
// whole search.
func (c *Client) SearchVideos(ctx context.Context, keyword string, window jst.Window, maxResults int64) ([]*models.VideoRecord, error) {
	if maxResults <= 0 || maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}

	ids, err := c.searchIDs(ctx, keyword, window, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.VideoRecord{}, nil
	}

	videos, err := c.fetchVideos(ctx, ids, window)
	if err != nil {
		return nil, err
	}

	log.Printf("Keyword %q: %d search hits, %d inside %s", keyword, len(ids), len(videos), window)
	return videos, nil
}

// searchIDs pages through search.list until maxResults ids are collected or
// the API stops returning a page token.
func (c *Client) searchIDs(ctx context.Context, keyword string, window jst.Window, maxResults int64) ([]string, error) {
	after, before := window.UTCBounds()

	var ids []string
	pageToken := ""

	for int64(len(ids)) < maxResults {
		pageSize := min(batchSize, maxResults-int64(len(ids)))

		call := c.service.Search.List([]string{"id"}).
			Q(keyword).
			Type("video").
			MaxResults(pageSize).
			PublishedAfter(after).
			PublishedBefore(before).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("search for %q failed: %w", keyword, err)
		}

		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" {
				continue
			}
			ids = append(ids, item.Id.VideoId)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// fetchVideos looks up snippet, statistics and content details in batches
// and drops anything published outside window. The search API's date filters
// are approximate, so this check is the authoritative one.
func (c *Client) fetchVideos(ctx context.Context, ids []string, window jst.Window) ([]*models.VideoRecord, error) {
	var videos []*models.VideoRecord

	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))

		call := c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(ids[i:end]...).
			Context(ctx)

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get video details: %w", err)
		}

		for _, item := range resp.Items {
			video, err := toRecord(item)
			if err != nil {
				return nil, err
			}
			if video == nil || !window.Contains(video.PublishedAt) {
				continue
			}
			videos = append(videos, video)
		}
	}

	return videos, nil
}

func toRecord(item *youtube.Video) (*models.VideoRecord, error) {
	if item.Snippet == nil {
		return nil, nil
	}

	publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("video %s has invalid publishedAt %q: %w", item.Id, item.Snippet.PublishedAt, err)
	}

	video := &models.VideoRecord{
		ID:           item.Id,
		Title:        item.Snippet.Title,
		ChannelTitle: item.Snippet.ChannelTitle,
		PublishedAt:  publishedAt.UTC(),
		Duration:     zeroPeriod,
	}

	// Likes and comments can be hidden by the uploader; absent counts read as 0.
	if item.Statistics != nil {
		video.ViewCount = int64(item.Statistics.ViewCount)
		video.LikeCount = int64(item.Statistics.LikeCount)
		video.CommentCount = int64(item.Statistics.CommentCount)
	}

	if item.ContentDetails != nil && item.ContentDetails.Duration != "" {
		video.Duration = item.ContentDetails.Duration
	}

	return video, nil
}
