package periods

import (
	"context"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/dataset"
)

var (
	cleanYearPattern = regexp.MustCompile(`simba_.*_(\d{4})\.json$`)
	anyYearPattern   = regexp.MustCompile(`\d{4}`)
)

// Resolver turns available filenames into selectable periods.
type Resolver struct {
	loader dataset.Loader
	logger *zap.Logger
}

// NewResolver wires a resolver that samples files through loader.
func NewResolver(loader dataset.Loader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{loader: loader, logger: logger}
}

// Resolve groups filenames by year, newest first, and resolves each period's
// date range by loading one representative file. Files are loaded one at a
// time; a failed load leaves the range unresolved but keeps the period.
func (r *Resolver) Resolve(ctx context.Context, filenames []string, city string) []models.Period {
	periods := Group(filenames)

	for i := range periods {
		if err := ctx.Err(); err != nil {
			r.logger.Debug("period resolution interrupted", zap.Error(err))
			break
		}
		periods[i].DateRange = r.dateRange(ctx, periods[i].Files, city)
	}
	return periods
}

// Group maps filenames to periods without touching the network. Clean
// single-year files win; otherwise the first 4-digit run names the year and
// the first file seen for a year is kept.
func Group(filenames []string) []models.Period {
	byYear := make(map[string]int)
	var periods []models.Period

	add := func(year, file string) {
		if idx, ok := byYear[year]; ok {
			periods[idx].Files = []string{file}
			return
		}
		byYear[year] = len(periods)
		periods = append(periods, models.Period{Year: year, DisplayName: year, Files: []string{file}})
	}

	for _, name := range filenames {
		if m := cleanYearPattern.FindStringSubmatch(name); m != nil {
			add(m[1], name)
		}
	}

	if len(periods) == 0 {
		for _, name := range filenames {
			year := ExtractYear(name)
			if year == "" {
				continue
			}
			if _, seen := byYear[year]; seen {
				continue
			}
			add(year, name)
		}
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return yearValue(periods[i].Year) > yearValue(periods[j].Year)
	})
	return periods
}

// ExtractYear returns the first 4-digit run in filename, or "".
func ExtractYear(filename string) string {
	return anyYearPattern.FindString(filename)
}

// PickFile chooses the file to load for a period, preferring one that names city.
func PickFile(files []string, city string) string {
	if len(files) == 0 {
		return ""
	}
	if matches := dataset.FilterByCity(files, city); len(matches) > 0 {
		return matches[0]
	}
	return files[0]
}

// Find returns the period for year.
func Find(periods []models.Period, year string) (models.Period, bool) {
	for _, p := range periods {
		if p.Year == year {
			return p, true
		}
	}
	return models.Period{}, false
}

func (r *Resolver) dateRange(ctx context.Context, files []string, city string) models.DateRange {
	file := PickFile(files, city)
	if file == "" {
		return models.DateRange{}
	}

	ds, err := r.loader.LoadDataset(ctx, file)
	if err != nil {
		r.logger.Warn("could not load date range", zap.String("file", file), zap.Error(err))
		return models.DateRange{}
	}
	return ds.DateRange()
}

func yearValue(year string) int {
	n, err := strconv.Atoi(year)
	if err != nil {
		return 0
	}
	return n
}
