package spreadsheet

import (
	"context"
	"fmt"
	"log"
	"strings"

	"video-trend-agent/shared/config"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Value input modes for appends.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// Exporter writes rows into worksheets of one fixed spreadsheet.
type Exporter struct {
	service       *sheets.Service
	spreadsheetID string
	rows          int64
	cols          int64
}

// NewExporter authenticates with the service account JSON from cfg and opens
// the configured spreadsheet. Extra options are appended last.
func NewExporter(ctx context.Context, cfg *config.SheetsConfig, opts ...option.ClientOption) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(creds.TokenSource))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Exporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		rows:          cfg.Rows,
		cols:          cfg.Cols,
	}, nil
}

// Worksheets lists the titles of every sheet in the spreadsheet.
func (e *Exporter) Worksheets(ctx context.Context) ([]string, error) {
	resp, err := e.service.Spreadsheets.Get(e.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", e.spreadsheetID, err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			titles = append(titles, sheet.Properties.Title)
		}
	}
	return titles, nil
}

// HasWorksheet reports whether a sheet with exactly this title exists.
func (e *Exporter) HasWorksheet(ctx context.Context, title string) (bool, error) {
	titles, err := e.Worksheets(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == title {
			return true, nil
		}
	}
	return false, nil
}

// CreateWorksheet adds an empty sheet with the given grid size and returns
// the id the API assigned to it.
func (e *Exporter) CreateWorksheet(ctx context.Context, title string, rows, cols int64) (int64, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}

	resp, err := e.service.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("create sheet %s: reply carries no sheet properties", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// DeleteWorksheet removes the sheet with the given id.
func (e *Exporter) DeleteWorksheet(ctx context.Context, sheetID int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			// Sheet id 0 is valid and would otherwise be dropped as empty.
			DeleteSheet: &sheets.DeleteSheetRequest{SheetId: sheetID, ForceSendFields: []string{"SheetId"}},
		}},
	}

	if _, err := e.service.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete sheet %d: %w", sheetID, err)
	}
	return nil
}

// AppendRow appends a single row after the last row with data.
func (e *Exporter) AppendRow(ctx context.Context, title string, row []interface{}, inputMode string) error {
	return e.AppendRows(ctx, title, [][]interface{}{row}, inputMode)
}

// AppendRows appends rows after the last row with data. With InputUserEntered
// the values are parsed as if typed into the UI, so numbers stay numbers.
func (e *Exporter) AppendRows(ctx context.Context, title string, rows [][]interface{}, inputMode string) error {
	if len(rows) == 0 {
		return nil
	}

	body := &sheets.ValueRange{Values: rows}
	_, err := e.service.Spreadsheets.Values.Append(e.spreadsheetID, a1Range(title), body).
		ValueInputOption(inputMode).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to sheet %s: %w", len(rows), title, err)
	}
	return nil
}

// Export creates the sheet, writes the header verbatim and then the data rows
// as user-entered values. If a write fails the new sheet is deleted again, so
// a failed export leaves no dated sheet behind.
func (e *Exporter) Export(ctx context.Context, title string, header []interface{}, rows [][]interface{}) error {
	sheetID, err := e.CreateWorksheet(ctx, title, e.rows, e.cols)
	if err != nil {
		return err
	}

	if err := e.writeAll(ctx, title, header, rows); err != nil {
		// The caller's context may be what failed the write.
		if delErr := e.DeleteWorksheet(context.WithoutCancel(ctx), sheetID); delErr != nil {
			log.Printf("Failed to remove partially written sheet %s: %v", title, delErr)
		} else {
			log.Printf("Removed partially written sheet %s", title)
		}
		return fmt.Errorf("export to sheet %s rolled back: %w", title, err)
	}

	log.Printf("Wrote %d rows to sheet %s", len(rows), title)
	return nil
}

func (e *Exporter) writeAll(ctx context.Context, title string, header []interface{}, rows [][]interface{}) error {
	if err := e.AppendRow(ctx, title, header, InputRaw); err != nil {
		return err
	}
	return e.AppendRows(ctx, title, rows, InputUserEntered)
}

// a1Range anchors an append at the top-left of the named sheet.
func a1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!A1"
}
