// Package export writes the filtered occurrence view to CSV and Google Sheets.
package export

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/mamadbah2/simba/internal/domain/models"
)

// ErrNothingToExport is returned for an empty view.
var ErrNothingToExport = errors.New("no data to export")

// Header is the fixed column order of every export.
var Header = []string{
	"Record Number",
	"Scientific Name",
	"Event Date",
	"Municipality",
	"State Province",
	"Latitude",
	"Longitude",
	"Recorded By",
	"Life Stage",
	"Sex",
	"Habitat",
	"Individual Count",
}

// Row renders a record in Header order. Numeric terms keep their upstream
// text. Absent values are empty.
func Row(o models.Occurrence) []string {
	return []string{
		o.RecordNumber,
		o.ScientificName,
		o.EventDate,
		o.Municipality,
		o.StateProvince,
		o.LatitudeText(),
		o.LongitudeText(),
		o.RecordedBy,
		o.LifeStage,
		o.Sex,
		o.Habitat,
		o.IndividualCountText(),
	}
}

// Filename stamps the export with the date of now.
func Filename(now time.Time) string {
	return "simba_occurrences_" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes the header and one line per record. Every field is quoted.
func WriteCSV(w io.Writer, view models.FilteredView) error {
	if view.Count() == 0 {
		return ErrNothingToExport
	}

	var b strings.Builder
	writeLine(&b, Header)
	for _, rec := range view.Records {
		writeLine(&b, Row(rec))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
