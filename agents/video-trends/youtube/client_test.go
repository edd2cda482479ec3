package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"video-trend-agent/shared/config"
	"video-trend-agent/shared/jst"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeAPI serves search.list and videos.list from canned data and records
// every request it sees.
type fakeAPI struct {
	mu sync.Mutex

	searchPages  [][]string        // ids per page, tokens are page indexes
	videos       map[string]string // id -> raw videos.list item JSON
	searchStatus int

	searchCalls []map[string]string
	videoCalls  [][]string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/youtube/v3/search"):
		f.searchCalls = append(f.searchCalls, map[string]string{
			"q":               q.Get("q"),
			"type":            q.Get("type"),
			"maxResults":      q.Get("maxResults"),
			"pageToken":       q.Get("pageToken"),
			"publishedAfter":  q.Get("publishedAfter"),
			"publishedBefore": q.Get("publishedBefore"),
		})
		if f.searchStatus != 0 {
			w.WriteHeader(f.searchStatus)
			fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
			return
		}

		page := 0
		if tok := q.Get("pageToken"); tok != "" {
			page, _ = strconv.Atoi(tok)
		}
		var items []string
		for _, id := range f.searchPages[page] {
			items = append(items, fmt.Sprintf(`{"id":{"kind":"youtube#video","videoId":%q}}`, id))
		}
		next := ""
		if page+1 < len(f.searchPages) {
			next = strconv.Itoa(page + 1)
		}
		fmt.Fprintf(w, `{"items":[%s],"nextPageToken":%q}`, strings.Join(items, ","), next)

	case strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"):
		var ids []string
		for _, v := range q["id"] {
			ids = append(ids, strings.Split(v, ",")...)
		}
		f.videoCalls = append(f.videoCalls, ids)

		var items []string
		for _, id := range ids {
			if raw, ok := f.videos[id]; ok {
				items = append(items, raw)
			}
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))

	default:
		http.NotFound(w, r)
	}
}

func videoJSON(id, title, publishedAt string, stats map[string]string, duration string) string {
	item := map[string]any{
		"id": id,
		"snippet": map[string]string{
			"title":        title,
			"channelTitle": "channel-" + id,
			"publishedAt":  publishedAt,
		},
	}
	if stats != nil {
		item["statistics"] = stats
	}
	if duration != "" {
		item["contentDetails"] = map[string]string{"duration": duration}
	}
	data, _ := json.Marshal(item)
	return string(data)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), &config.YouTubeConfig{APIKey: "test-key"},
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return client
}

func testWindow(t *testing.T) jst.Window {
	t.Helper()
	w, err := jst.ParseWindow("2024-01-01 00:00:00", "2024-01-02 10:01:00")
	require.NoError(t, err)
	return w
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

func TestSearchVideosMapsMetadata(t *testing.T) {
	api := &fakeAPI{
		searchPages: [][]string{{"full", "hidden", "nodetails"}},
		videos: map[string]string{
			"full": videoJSON("full", "golang tips", "2024-01-01T03:00:00Z",
				map[string]string{"viewCount": "1000", "likeCount": "40", "commentCount": "10"}, "PT4M13S"),
			"hidden": videoJSON("hidden", "golang hidden likes", "2024-01-01T04:00:00Z",
				map[string]string{"viewCount": "7"}, "PT10S"),
			"nodetails": videoJSON("nodetails", "golang live", "2024-01-01T05:00:00Z", nil, ""),
		},
	}
	client := newTestClient(t, api)

	videos, err := client.SearchVideos(context.Background(), "golang", testWindow(t), 100)
	require.NoError(t, err)
	require.Len(t, videos, 3)

	full := videos[0]
	assert.Equal(t, "full", full.ID)
	assert.Equal(t, "golang tips", full.Title)
	assert.Equal(t, "channel-full", full.ChannelTitle)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), full.PublishedAt)
	assert.Equal(t, int64(1000), full.ViewCount)
	assert.Equal(t, int64(40), full.LikeCount)
	assert.Equal(t, int64(10), full.CommentCount)
	assert.Equal(t, "PT4M13S", full.Duration)

	hidden := videos[1]
	assert.Equal(t, int64(7), hidden.ViewCount)
	assert.Zero(t, hidden.LikeCount)
	assert.Zero(t, hidden.CommentCount)

	none := videos[2]
	assert.Zero(t, none.ViewCount)
	assert.Equal(t, "PT0S", none.Duration)

	require.Len(t, api.searchCalls, 1)
	call := api.searchCalls[0]
	assert.Equal(t, "golang", call["q"])
	assert.Equal(t, "video", call["type"])
	assert.Equal(t, "50", call["maxResults"])
	assert.Equal(t, "2023-12-31T15:00:00Z", call["publishedAfter"])
	assert.Equal(t, "2024-01-02T01:01:00Z", call["publishedBefore"])
}

func TestSearchVideosPagination(t *testing.T) {
	tests := []struct {
		name          string
		pages         [][]string
		maxResults    int64
		wantPageSizes []string
		wantIDs       int
		wantBatches   []int
	}{
		{
			name:          "Stops at max results",
			pages:         [][]string{ids("a", 50), ids("b", 50), ids("c", 50)},
			maxResults:    100,
			wantPageSizes: []string{"50", "50"},
			wantIDs:       100,
			wantBatches:   []int{50, 50},
		},
		{
			name:          "Last page shrinks",
			pages:         [][]string{ids("a", 50), ids("b", 20)},
			maxResults:    70,
			wantPageSizes: []string{"50", "20"},
			wantIDs:       70,
			wantBatches:   []int{50, 20},
		},
		{
			name:          "Stops without page token",
			pages:         [][]string{ids("a", 12)},
			maxResults:    100,
			wantPageSizes: []string{"50"},
			wantIDs:       12,
			wantBatches:   []int{12},
		},
		{
			name:          "Small limit",
			pages:         [][]string{ids("a", 5), ids("b", 5)},
			maxResults:    5,
			wantPageSizes: []string{"5"},
			wantIDs:       5,
			wantBatches:   []int{5},
		},
		{
			name:          "Clamped limit",
			pages:         [][]string{ids("a", 50), ids("b", 50), ids("c", 50)},
			maxResults:    500,
			wantPageSizes: []string{"50", "50"},
			wantIDs:       100,
			wantBatches:   []int{50, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{searchPages: tt.pages, videos: map[string]string{}}
			for _, page := range tt.pages {
				for _, id := range page {
					api.videos[id] = videoJSON(id, "golang "+id, "2024-01-01T00:00:00Z",
						map[string]string{"viewCount": "1"}, "PT1S")
				}
			}
			client := newTestClient(t, api)

			videos, err := client.SearchVideos(context.Background(), "golang", testWindow(t), tt.maxResults)
			require.NoError(t, err)
			assert.Len(t, videos, tt.wantIDs)

			var sizes []string
			for i, call := range api.searchCalls {
				sizes = append(sizes, call["maxResults"])
				if i > 0 {
					assert.Equal(t, strconv.Itoa(i), call["pageToken"])
				}
			}
			assert.Equal(t, tt.wantPageSizes, sizes)

			var batches []int
			for _, call := range api.videoCalls {
				batches = append(batches, len(call))
			}
			assert.Equal(t, tt.wantBatches, batches)
		})
	}
}

func TestSearchVideosRevalidatesWindow(t *testing.T) {
	api := &fakeAPI{
		searchPages: [][]string{{"early", "start", "end", "late"}},
		videos: map[string]string{
			"early": videoJSON("early", "k", "2023-12-31T14:59:59Z", nil, ""),
			"start": videoJSON("start", "k", "2023-12-31T15:00:00Z", nil, ""),
			"end":   videoJSON("end", "k", "2024-01-02T01:01:00Z", nil, ""),
			"late":  videoJSON("late", "k", "2024-01-02T01:01:01Z", nil, ""),
		},
	}
	client := newTestClient(t, api)

	videos, err := client.SearchVideos(context.Background(), "k", testWindow(t), 100)
	require.NoError(t, err)

	var got []string
	for _, v := range videos {
		got = append(got, v.ID)
	}
	assert.Equal(t, []string{"start", "end"}, got)
}

func TestSearchVideosNoHits(t *testing.T) {
	api := &fakeAPI{searchPages: [][]string{{}}}
	client := newTestClient(t, api)

	videos, err := client.SearchVideos(context.Background(), "nothing", testWindow(t), 100)
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Empty(t, api.videoCalls, "no metadata lookup without ids")
}

func TestSearchVideosAPIError(t *testing.T) {
	api := &fakeAPI{searchPages: [][]string{{"x"}}, searchStatus: http.StatusForbidden}
	client := newTestClient(t, api)

	_, err := client.SearchVideos(context.Background(), "golang", testWindow(t), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "golang")
	assert.Len(t, api.searchCalls, 1, "errors are not retried")
}

func TestSearchVideosInvalidPublishedAt(t *testing.T) {
	api := &fakeAPI{
		searchPages: [][]string{{"bad"}},
		videos:      map[string]string{"bad": videoJSON("bad", "k", "not a time", nil, "")},
	}
	client := newTestClient(t, api)

	_, err := client.SearchVideos(context.Background(), "k", testWindow(t), 100)
	assert.Error(t, err)
}

func TestSearchVideosCancelledContext(t *testing.T) {
	api := &fakeAPI{searchPages: [][]string{{"x"}}}
	client := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SearchVideos(ctx, "k", testWindow(t), 100)
	assert.Error(t, err)
}
