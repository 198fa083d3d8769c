// Package sheets persists publication records to a Google Sheets worksheet.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kodjooo/content-from-rss/internal/config"
	"github.com/kodjooo/content-from-rss/internal/models"
)

// Headers is the fixed column layout of the worksheet.
var Headers = []string{
	"Date",
	"Source",
	"Title",
	"Link",
	"Summary",
	"Short Post",
	"Average Post",
	"GPT Post Title",
	"GPT Post",
	"Image URL",
	"Image Source",
	"Score",
	"Status",
	"Hashtags",
	"Notes",
	"Telegraph Link",
	"VK Post Link",
	"TG Post Link",
}

// linkColumn is where NewsItem links live (column D).
const linkColumn = "D"

// Writer wraps the Sheets API for the pipeline's persistence contract.
type Writer struct {
	cfg     config.Sheets
	service *sheets.Service
	log     *slog.Logger
}

// NewWriter dials the Sheets API with service account credentials.
func NewWriter(ctx context.Context, cfg config.Sheets, log *slog.Logger) (*Writer, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.ServiceAccountJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Writer{cfg: cfg, service: service, log: log}, nil
}

// AppendRecords writes the whole batch with a single append call, so the
// batch lands or fails as one unit.
func (w *Writer) AppendRecords(ctx context.Context, records []models.PublicationRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := w.ensureHeader(ctx); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(records))
	for _, record := range records {
		rows = append(rows, serializeRecord(record))
	}

	_, err := w.service.Spreadsheets.Values.
		Append(w.cfg.SheetID, w.rangeName("A:R"), &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append records: %w", err)
	}

	w.log.Info("records appended to sheet", "count", len(records))
	return nil
}

// ExistingLinks reads the link column, skipping the header row.
func (w *Writer) ExistingLinks(ctx context.Context) (map[string]struct{}, error) {
	if err := w.ensureHeader(ctx); err != nil {
		return nil, err
	}

	resp, err := w.service.Spreadsheets.Values.
		Get(w.cfg.SheetID, w.rangeName(linkColumn+"2:"+linkColumn)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read link column: %w", err)
	}

	links := make(map[string]struct{}, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if link, ok := row[0].(string); ok {
			if link = strings.TrimSpace(link); link != "" {
				links[link] = struct{}{}
			}
		}
	}
	return links, nil
}

// ClearRecords wipes every row except the header.
func (w *Writer) ClearRecords(ctx context.Context) error {
	_, err := w.service.Spreadsheets.Values.
		Clear(w.cfg.SheetID, w.rangeName("A2:R"), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return w.ensureHeader(ctx)
}

// ensureHeader creates the header row when absent and rewrites it when it
// no longer matches the expected layout.
func (w *Writer) ensureHeader(ctx context.Context) error {
	resp, err := w.service.Spreadsheets.Values.
		Get(w.cfg.SheetID, w.rangeName("1:1")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	var current []string
	if len(resp.Values) > 0 {
		for _, cell := range resp.Values[0] {
			if text, ok := cell.(string); ok {
				current = append(current, strings.TrimSpace(text))
			}
		}
	}
	if headerMatches(current) {
		return nil
	}

	row := make([]interface{}, len(Headers))
	for i, header := range Headers {
		row[i] = header
	}
	_, err = w.service.Spreadsheets.Values.
		Update(w.cfg.SheetID, w.rangeName("1:1"), &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	w.log.Info("sheet header restored", "worksheet", w.cfg.Worksheet)
	return nil
}

func headerMatches(current []string) bool {
	if len(current) != len(Headers) {
		return false
	}
	for i, header := range Headers {
		if current[i] != header {
			return false
		}
	}
	return true
}

func (w *Writer) rangeName(cells string) string {
	return fmt.Sprintf("%s!%s", w.cfg.Worksheet, cells)
}

// serializeRecord renders one record as the fixed, ordered cell list.
func serializeRecord(record models.PublicationRecord) []interface{} {
	shortText := "Читать подробнее >"
	if body := strings.TrimSpace(record.Post.ShortBody); body != "" {
		shortText = body + "\n\n" + shortText
	}
	longText := "Источник >"
	if body := strings.TrimSpace(record.Post.LongBody); body != "" {
		longText = body + "\n\n" + longText
	}

	return []interface{}{
		record.Date.Format(time.RFC3339),
		record.Source,
		record.Title,
		record.Link,
		record.Summary,
		shortText,
		longText,
		record.Post.Title,
		telegraphContent(record),
		record.Image.URL,
		record.Image.Source.Label(),
		fmt.Sprintf("%d", record.Score),
		record.Status,
		record.Post.HashtagLine(),
		record.Notes,
		record.TelegraphLink,
		record.VKPostLink,
		record.TGPostLink,
	}
}
