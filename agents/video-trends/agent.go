package videotrends

import (
	"context"
	"fmt"
	"log"
	"time"

	"video-trend-agent/agents/video-trends/spreadsheet"
	"video-trend-agent/agents/video-trends/youtube"
	"video-trend-agent/internal/models"
	"video-trend-agent/shared/config"
	"video-trend-agent/shared/jst"
	"video-trend-agent/shared/scheduler"

	"github.com/google/uuid"
)

// VideoSearcher finds videos for one keyword inside a search window.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, keyword string, window jst.Window, maxResults int64) ([]*models.VideoRecord, error)
}

// SheetWriter is the slice of the spreadsheet the agent needs.
type SheetWriter interface {
	HasWorksheet(ctx context.Context, title string) (bool, error)
	Export(ctx context.Context, title string, header []interface{}, rows [][]interface{}) error
}

// RunMetrics describes one run of the agent.
type RunMetrics struct {
	RunID     string `json:"run_id"`
	SheetName string `json:"sheet_name"`
	Skipped   bool   `json:"skipped"`
	Keywords  int    `json:"keywords"`
	Fetched   int    `json:"fetched"`
	Exported  int    `json:"exported"`
}

// GetSummary implements the scheduler.Metrics interface
func (m RunMetrics) GetSummary() string {
	if m.Skipped {
		return fmt.Sprintf("sheet %s already exists, skipped", m.SheetName)
	}
	return fmt.Sprintf("searched %d keywords, fetched %d videos, exported %d rows to sheet %s",
		m.Keywords, m.Fetched, m.Exported, m.SheetName)
}

// VideoTrendsAgent implements the scheduler.Agent interface
type VideoTrendsAgent struct {
	config   *config.Config
	searcher VideoSearcher
	writer   SheetWriter
	now      func() time.Time
}

func NewVideoTrendsAgent(cfg *config.Config) *VideoTrendsAgent {
	return &VideoTrendsAgent{
		config: cfg,
		now:    time.Now,
	}
}

func (a *VideoTrendsAgent) Name() string {
	return "Video Trends"
}

func (a *VideoTrendsAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())
	ctx := context.Background()

	if a.searcher == nil {
		client, err := youtube.NewClient(ctx, &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.searcher = client
		log.Println("YouTube client initialized")
	}

	if a.writer == nil {
		exporter, err := spreadsheet.NewExporter(ctx, &a.config.Sheets)
		if err != nil {
			return fmt.Errorf("failed to create spreadsheet exporter: %w", err)
		}
		a.writer = exporter
		log.Printf("Spreadsheet exporter initialized (%s)", a.config.Sheets.SpreadsheetID)
	}

	return nil
}

// RunOnce exports today's sheet unless it already exists. The existence
// check happens before any search call. It is not atomic with the sheet
// creation, so concurrent runs for the same day must be serialized by the
// caller.
func (a *VideoTrendsAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	now := a.now()

	metrics := RunMetrics{
		RunID:     uuid.NewString(),
		SheetName: jst.DateKey(now),
	}
	executedAt := jst.Timestamp(now)

	windowEnd, err := jst.WindowEndFor(metrics.SheetName, a.config.Search.WindowEndTime)
	if err != nil {
		return err
	}
	window, err := jst.ParseWindow(a.config.Search.StartDatetime, windowEnd)
	if err != nil {
		return fmt.Errorf("invalid search window: %w", err)
	}

	log.Printf("[%s] Checking for sheet %s", metrics.RunID, metrics.SheetName)
	exists, err := a.writer.HasWorksheet(ctx, metrics.SheetName)
	if err != nil {
		return fmt.Errorf("failed to check for existing sheet: %w", err)
	}
	if exists {
		log.Printf("[%s] Sheet %s already exists, skipping without calling the search API", metrics.RunID, metrics.SheetName)
		metrics.Skipped = true
		if events != nil && events.OnSuccess != nil {
			events.OnSuccess(metrics, time.Since(startTime))
		}
		return nil
	}

	keywords := a.config.Search.Keywords
	metrics.Keywords = len(keywords)

	resultSets := make([][]*models.VideoRecord, 0, len(keywords))
	for i, keyword := range keywords {
		log.Printf("[%s] Searching keyword %d/%d: %q (%s)", metrics.RunID, i+1, len(keywords), keyword, window)

		videos, err := a.searcher.SearchVideos(ctx, keyword, window, a.config.Search.MaxResults)
		if err != nil {
			return fmt.Errorf("failed to search keyword %q: %w", keyword, err)
		}
		metrics.Fetched += len(videos)
		resultSets = append(resultSets, videos)
	}

	merged := Merge(resultSets, keywords)
	metrics.Exported = len(merged)
	log.Printf("[%s] %d videos fetched, %d unique matching videos", metrics.RunID, metrics.Fetched, metrics.Exported)

	if err := a.writer.Export(ctx, metrics.SheetName, Header, BuildRows(merged, executedAt)); err != nil {
		return fmt.Errorf("failed to export sheet %s: %w", metrics.SheetName, err)
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}

	log.Printf("[%s] Run complete: %s", metrics.RunID, metrics.GetSummary())
	return nil
}
