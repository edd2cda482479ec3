package videotrends

import (
	"sort"
	"strings"

	"video-trend-agent/internal/models"
)

// Merge flattens the per-keyword results into one list with a single record
// per video ID. Records whose title contains none of the keywords are dropped.
// A later record for an ID replaces an earlier one in place. The output is
// ordered by view count, highest first, keeping input order among ties.
func Merge(resultSets [][]*models.VideoRecord, keywords []string) []*models.VideoRecord {
	index := make(map[string]int)
	var merged []*models.VideoRecord

	for _, results := range resultSets {
		for _, video := range results {
			if video == nil || !titleMatches(video.Title, keywords) {
				continue
			}
			if i, ok := index[video.ID]; ok {
				merged[i] = video
				continue
			}
			index[video.ID] = len(merged)
			merged = append(merged, video)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ViewCount > merged[j].ViewCount
	})
	return merged
}

// titleMatches is a case-sensitive literal substring test.
func titleMatches(title string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
