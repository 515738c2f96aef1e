package insights

import (
	"context"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/dataset"
	"github.com/mamadbah2/simba/internal/service/periods"
)

// AllLocalities selects the declared yearly totals instead of a single locality.
const AllLocalities = "all"

// Yearly builds the chart series in ascending year order. For all localities
// each year reports its declared total; otherwise the records in locality.
func Yearly(yearly map[int]*models.Dataset, locality string) []models.YearlyPoint {
	years := sortedYears(yearly)
	points := make([]models.YearlyPoint, 0, len(years))
	for _, y := range years {
		ds := yearly[y]
		count := ds.RecordCount()
		if locality != "" && locality != AllLocalities {
			count = 0
			for _, rec := range ds.Records {
				if rec.Locality == locality {
					count++
				}
			}
		}
		points = append(points, models.YearlyPoint{Year: y, Count: count})
	}
	return points
}

// Summarize reports totals for a yearly series. Extremes resolve to the
// earliest year reaching them.
func Summarize(points []models.YearlyPoint) models.YearlySummary {
	var s models.YearlySummary
	if len(points) == 0 {
		return s
	}

	s.MaxYear, s.MaxCount = points[0].Year, points[0].Count
	s.MinYear, s.MinCount = points[0].Year, points[0].Count
	for _, p := range points {
		s.Total += p.Count
		if p.Count > s.MaxCount {
			s.MaxYear, s.MaxCount = p.Year, p.Count
		}
		if p.Count < s.MinCount {
			s.MinYear, s.MinCount = p.Year, p.Count
		}
	}
	s.Average = int(math.Round(float64(s.Total) / float64(len(points))))
	return s
}

// LoadYearly loads one dataset per period, oldest year first and one file at
// a time. Years whose file cannot be loaded are skipped.
func LoadYearly(ctx context.Context, loader dataset.Loader, ps []models.Period, city string, logger *zap.Logger) (map[int]*models.Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ordered := append([]models.Period(nil), ps...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Year < ordered[j].Year
	})

	yearly := make(map[int]*models.Dataset, len(ordered))
	for _, p := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		year := yearOf(p.Year)
		file := periods.PickFile(p.Files, city)
		if year == 0 || file == "" {
			continue
		}

		ds, err := loader.LoadDataset(ctx, file)
		if err != nil {
			logger.Error("failed to load yearly dataset", zap.String("file", file), zap.Int("year", year), zap.Error(err))
			continue
		}
		yearly[year] = ds
	}
	return yearly, nil
}

func yearOf(year string) int {
	n, err := strconv.Atoi(year)
	if err != nil {
		return 0
	}
	return n
}
