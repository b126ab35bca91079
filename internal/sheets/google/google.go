// Package google mirrors transactions into a Google Sheets tab using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// Config selects the spreadsheet and credentials. Exactly one of
// ServiceAccountJSON or ServiceAccountFile is expected.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// mu serializes row lookups with the writes that depend on them.
	mu      sync.Mutex
	sheetID *int64
}

var (
	_ ports.TransactionMirror = (*Client)(nil)
	_ ports.MirrorLister      = (*Client)(nil)
)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	logger.DebugContext(ctx, "Creating Google Sheets service", "scope", gsheet.SpreadsheetsScope)
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) rangeOf(a1 string) string {
	return fmt.Sprintf("'%s'!%s", c.sheetName, a1)
}

func (c *Client) readIDColumn(ctx context.Context) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	return resp.Values, nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf("A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Upsert rewrites the row carrying t.ID, appending one if none exists. Rows
// are USER_ENTERED so amounts stay numeric; ToRow quotes formula-like text.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.ToRow(t)}}

	if n := ports.FindRow(rows, t.ID); n > 0 {
		rng := c.rangeOf(fmt.Sprintf("A%d:H%d", n, n))
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d: %w", n, err)
		}
		c.logger.DebugContext(ctx, "Updated mirrored row", log.FieldTransactionID, t.ID, "row", n)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeOf(ports.ColumnRange), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	c.logger.DebugContext(ctx, "Appended mirrored row", log.FieldTransactionID, t.ID)
	return nil
}

// Remove deletes the row carrying id. A missing row is not an error.
func (c *Client) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	n := ports.FindRow(rows, id)
	if n == 0 {
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", n, err)
	}
	c.logger.DebugContext(ctx, "Removed mirrored row", log.FieldTransactionID, id, "row", n)
	return nil
}

func (c *Client) MirroredIDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readIDColumn(ctx)
	if err != nil {
		return nil, err
	}
	return ports.IDs(rows), nil
}

// resolveSheetID looks up the numeric id of the tab, which row deletion
// requires. Callers hold c.mu.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
