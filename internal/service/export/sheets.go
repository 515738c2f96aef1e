package export

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/sheets"
)

// SheetsExporter appends filtered views to a spreadsheet range.
type SheetsExporter struct {
	repo       sheets.Repository
	sheetRange string
	logger     *zap.Logger
}

// NewSheetsExporter wires an exporter writing into sheetRange.
func NewSheetsExporter(repo sheets.Repository, sheetRange string, logger *zap.Logger) *SheetsExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetsExporter{repo: repo, sheetRange: sheetRange, logger: logger}
}

// Export appends one row per record. The header row is written first when
// the sheet is still empty. It returns the number of record rows written.
func (e *SheetsExporter) Export(ctx context.Context, view models.FilteredView) (int, error) {
	if view.Count() == 0 {
		return 0, ErrNothingToExport
	}

	existing, err := e.repo.ReadRange(ctx, headerRange(e.sheetRange))
	if err != nil {
		return 0, fmt.Errorf("check sheet header: %w", err)
	}

	rows := make([][]interface{}, 0, view.Count()+1)
	if len(existing) == 0 {
		rows = append(rows, cells(Header))
	}
	for _, rec := range view.Records {
		rows = append(rows, cells(Row(rec)))
	}

	if _, err := e.repo.AppendRows(ctx, e.sheetRange, rows); err != nil {
		return 0, fmt.Errorf("export to sheet: %w", err)
	}

	e.logger.Info("view exported to sheet",
		zap.String("range", e.sheetRange),
		zap.Int("records", view.Count()),
		zap.Bool("header", len(existing) == 0),
	)
	return view.Count(), nil
}

// headerRange is the first row of the sheet named in sheetRange.
func headerRange(sheetRange string) string {
	if i := strings.Index(sheetRange, "!"); i >= 0 {
		return sheetRange[:i] + "!1:1"
	}
	return "1:1"
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
