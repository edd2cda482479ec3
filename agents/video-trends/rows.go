package videotrends

import (
	"math"

	"video-trend-agent/internal/models"
	"video-trend-agent/shared/jst"
)

// Header is the first row of every exported sheet.
var Header = []interface{}{
	"Title",
	"Channel",
	"Published (JST)",
	"Video ID",
	"URL",
	"Views",
	"Likes",
	"Comments",
	"Duration",
	"Engagement Rate (%)",
	"Fetched At (JST)",
}

// EngagementRate is (likes + comments) / views as a percentage rounded to two
// decimals, halves to even. A video without views has a rate of 0.
func EngagementRate(likes, comments, views int64) float64 {
	if views == 0 {
		return 0
	}
	rate := float64(likes+comments) / float64(views) * 100
	return math.RoundToEven(rate*100) / 100
}

// BuildRow projects a video into the sheet's column order.
func BuildRow(video *models.VideoRecord, executedAt string) []interface{} {
	return []interface{}{
		video.Title,
		video.ChannelTitle,
		jst.DisplayTime(video.PublishedAt),
		video.ID,
		video.WatchURL(),
		video.ViewCount,
		video.LikeCount,
		video.CommentCount,
		jst.PeriodToClock(video.Duration),
		EngagementRate(video.LikeCount, video.CommentCount, video.ViewCount),
		executedAt,
	}
}

// BuildRows projects videos in order.
func BuildRows(videos []*models.VideoRecord, executedAt string) [][]interface{} {
	rows := make([][]interface{}, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, BuildRow(v, executedAt))
	}
	return rows
}
