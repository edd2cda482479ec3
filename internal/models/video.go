package models

import (
	"fmt"
	"time"
)

// VideoRecord is one search hit enriched with its metadata lookup.
type VideoRecord struct {
	ID           string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"` // UTC
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	Duration     string    `json:"duration"` // ISO 8601 period, e.g. "PT4M13S"
}

// WatchURL returns the canonical watch page for the video.
func (v *VideoRecord) WatchURL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID)
}
