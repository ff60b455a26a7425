package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

const (
	SheetName       = "Analyses"
	summaryMaxChars = 300
)

var headers = []string{
	"Uploaded",
	"Filename",
	"Summary",
	"Claim Value (GBP)",
	"Track",
	"Legal Categories",
	"Urgency",
	"Defence Points",
	"Outcome",
}

// Exporter renders document analysis histories as XLSX workbooks.
type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

func (e *Exporter) ExportAnalyses(ctx context.Context, analyses []domain.DocumentAnalysis) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet so the workbook has a single tab.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, a := range analyses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		values := []any{
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.Filename,
			truncate(a.Summary, summaryMaxChars),
			a.ClaimValue,
			a.Track.Label(),
			strings.Join(a.LegalCategories, ", "),
			string(a.Urgency),
			len(a.DefencePoints),
			string(a.Outcome),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "B", "B", 28)
	_ = f.SetColWidth(SheetName, "C", "C", 60)
	_ = f.SetColWidth(SheetName, "D", "D", 16)
	_ = f.SetColWidth(SheetName, "E", "E", 30)
	_ = f.SetColWidth(SheetName, "F", "F", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"rows", len(analyses),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
