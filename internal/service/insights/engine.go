// Package insights derives ranked statistical observations from several years
// of occurrence data.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
)

const (
	trendWindow        = 3
	trendThreshold     = 10.0
	anomalyThreshold   = 30.0
	anomalyMinYears    = 3
	variationThreshold = 5
)

var monthKeys = [12]string{
	"months.january", "months.february", "months.march", "months.april",
	"months.may", "months.june", "months.july", "months.august",
	"months.september", "months.october", "months.november", "months.december",
}

// Translator resolves UI text and number formatting for a single language.
type Translator interface {
	T(key string, params map[string]any) string
	FormatNumber(n int) string
}

// Engine computes insights. The clock decides which year is still in progress.
type Engine struct {
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine wires an insights engine using the wall clock.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{now: time.Now, logger: logger}
}

// Compute runs every insight rule over yearly and returns the results in rule
// order. Rules without a triggering condition contribute nothing.
func (e *Engine) Compute(yearly map[int]*models.Dataset, tr Translator) []models.Insight {
	years := sortedYears(yearly)
	if len(years) == 0 {
		return nil
	}

	var out []models.Insight
	out = append(out, e.yearlyTrend(yearly, years, tr)...)
	out = append(out, locations(yearly, years, tr)...)
	out = append(out, e.anomalies(yearly, years, tr)...)
	out = append(out, seasonal(yearly, years, tr)...)
	out = append(out, species(yearly, years, tr)...)

	e.logger.Debug("insights computed", zap.Int("years", len(years)), zap.Int("insights", len(out)))
	return out
}

// Top orders insights by ascending priority, keeping rule order on ties, and
// caps the result at n. A non-positive n keeps everything.
func Top(insights []models.Insight, n int) []models.Insight {
	ranked := append([]models.Insight(nil), insights...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority < ranked[j].Priority
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (e *Engine) yearlyTrend(yearly map[int]*models.Dataset, years []int, tr Translator) []models.Insight {
	currentYear := e.now().Year()

	completed := newCounter[int]()
	for _, y := range years {
		if y != currentYear {
			completed.addN(y, yearly[y].RecordCount())
		}
	}
	if completed.len() < 2 {
		return nil
	}

	maxYear, maxCount, _ := completed.max()
	minYear, minCount, _ := completed.min()

	out := []models.Insight{
		{
			Type:        models.InsightPeak,
			Title:       tr.T("insights.peak.title", nil),
			Value:       strconv.Itoa(maxYear),
			Subtitle:    tr.T("insights.peak.subtitle", map[string]any{"count": tr.FormatNumber(maxCount)}),
			Description: tr.T("insights.peak.description", nil),
			Priority:    1,
		},
		{
			Type:        models.InsightLow,
			Title:       tr.T("insights.low.title", nil),
			Value:       strconv.Itoa(minYear),
			Subtitle:    tr.T("insights.low.subtitle", map[string]any{"count": tr.FormatNumber(minCount)}),
			Description: tr.T("insights.low.description", nil),
			Priority:    2,
		},
	}

	if ds := yearly[currentYear]; ds != nil {
		month := tr.T(monthKeys[e.now().Month()-1], nil)
		out = append(out, models.Insight{
			Type:        models.InsightCurrent,
			Title:       tr.T("insights.current.title", nil),
			Value:       tr.T("insights.current.value", map[string]any{"count": tr.FormatNumber(ds.RecordCount())}),
			Subtitle:    strconv.Itoa(currentYear),
			Description: tr.T("insights.current.description", map[string]any{"month": month}),
			Priority:    3,
		})
	}

	if completed.len() >= trendWindow {
		recent := completed.order[completed.len()-trendWindow:]
		counts := make([]int, len(recent))
		for i, y := range recent {
			counts[i] = completed.get(y)
		}
		if change, ok := trend(counts); ok && math.Abs(change) > trendThreshold {
			title, desc := "insights.trend.risingTitle", "insights.trend.risingDescription"
			if change < 0 {
				title, desc = "insights.trend.fallingTitle", "insights.trend.fallingDescription"
			}
			out = append(out, models.Insight{
				Type:        models.InsightTrend,
				Title:       tr.T(title, nil),
				Value:       fmt.Sprintf("%.1f%%", math.Abs(change)),
				Subtitle:    tr.T("insights.trend.subtitle", nil),
				Description: tr.T(desc, nil),
				Priority:    3,
			})
		}
	}

	return out
}

// trend compares the average of the early half of counts with the late half.
// With an odd length the middle value belongs to neither half.
func trend(counts []int) (float64, bool) {
	if len(counts) < 2 {
		return 0, false
	}
	early := average(counts[:len(counts)/2])
	late := average(counts[(len(counts)+1)/2:])
	if early == 0 {
		return 0, false
	}
	return (late - early) / early * 100, true
}

func average(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func locations(yearly map[int]*models.Dataset, years []int, tr Translator) []models.Insight {
	unidentified := tr.T("insights.unidentifiedLocation", nil)

	totals := newCounter[string]()
	perYear := make(map[string]*counter[int])
	for _, y := range years {
		for _, rec := range yearly[y].Records {
			loc := rec.Locality
			if loc == "" {
				loc = unidentified
			}
			totals.add(loc)
			if perYear[loc] == nil {
				perYear[loc] = newCounter[int]()
			}
			perYear[loc].add(y)
		}
	}

	var out []models.Insight
	if loc, count, ok := totals.max(); ok {
		out = append(out, models.Insight{
			Type:        models.InsightHotspot,
			Title:       tr.T("insights.hotspot.title", nil),
			Value:       loc,
			Subtitle:    tr.T("insights.hotspot.subtitle", map[string]any{"count": tr.FormatNumber(count), "total": tr.FormatNumber(totals.total())}),
			Description: tr.T("insights.hotspot.description", nil),
			Priority:    4,
		})
	}

	var (
		bestLoc    string
		bestSpread int
		bestYears  *counter[int]
	)
	for _, loc := range totals.order {
		byYear := perYear[loc]
		if byYear.len() < 2 {
			continue
		}
		_, hi, _ := byYear.max()
		_, lo, _ := byYear.min()
		if spread := hi - lo; spread > bestSpread && spread > variationThreshold {
			bestLoc, bestSpread, bestYears = loc, spread, byYear
		}
	}
	if bestYears != nil {
		maxYear, hi, _ := bestYears.max()
		minYear, lo, _ := bestYears.min()
		out = append(out, models.Insight{
			Type:  models.InsightVariation,
			Title: tr.T("insights.variation.title", nil),
			Value: bestLoc,
			Subtitle: tr.T("insights.variation.subtitle", map[string]any{
				"max": tr.FormatNumber(hi), "maxYear": maxYear, "min": tr.FormatNumber(lo), "minYear": minYear,
			}),
			Description: tr.T("insights.variation.description", nil),
			Priority:    5,
		})
	}
	return out
}

func (e *Engine) anomalies(yearly map[int]*models.Dataset, years []int, tr Translator) []models.Insight {
	if len(years) < anomalyMinYears {
		return nil
	}
	currentYear := e.now().Year()

	var out []models.Insight
	for i := 1; i < len(years); i++ {
		if years[i] == currentYear {
			continue
		}
		previous := yearly[years[i-1]].RecordCount()
		current := yearly[years[i]].RecordCount()
		if previous == 0 {
			e.logger.Debug("skip anomaly check against empty year", zap.Int("year", years[i-1]))
			continue
		}

		change := float64(current-previous) / float64(previous) * 100
		if math.Abs(change) <= anomalyThreshold {
			continue
		}

		title, desc := "insights.anomaly.increaseTitle", "insights.anomaly.increaseDescription"
		if change < 0 {
			title, desc = "insights.anomaly.decreaseTitle", "insights.anomaly.decreaseDescription"
		}
		out = append(out, models.Insight{
			Type:        models.InsightAnomaly,
			Title:       tr.T(title, nil),
			Value:       fmt.Sprintf("%.0f%%", math.Abs(change)),
			Subtitle:    tr.T("insights.anomaly.subtitle", map[string]any{"from": years[i-1], "to": years[i]}),
			Description: tr.T(desc, map[string]any{"previous": tr.FormatNumber(previous), "current": tr.FormatNumber(current)}),
			Priority:    6,
		})
	}
	return out
}

func seasonal(yearly map[int]*models.Dataset, years []int, tr Translator) []models.Insight {
	months := newCounter[time.Month]()
	for _, y := range years {
		for _, rec := range yearly[y].Records {
			t, err := rec.EventTime()
			if err != nil {
				continue
			}
			months.add(t.Month())
		}
	}

	month, count, ok := months.max()
	if !ok {
		return nil
	}
	return []models.Insight{{
		Type:        models.InsightSeasonal,
		Title:       tr.T("insights.seasonal.title", nil),
		Value:       tr.T(monthKeys[month-1], nil),
		Subtitle:    tr.T("insights.occurrences", map[string]any{"count": tr.FormatNumber(count)}),
		Description: tr.T("insights.seasonal.description", nil),
		Priority:    7,
	}}
}

func species(yearly map[int]*models.Dataset, years []int, tr Translator) []models.Insight {
	unidentified := tr.T("insights.unidentifiedSpecies", nil)

	counts := newCounter[string]()
	for _, y := range years {
		for _, rec := range yearly[y].Records {
			counts.add(SpeciesName(rec, unidentified))
		}
	}

	name, count, ok := counts.max()
	if !ok {
		return nil
	}
	return []models.Insight{{
		Type:        models.InsightSpecies,
		Title:       tr.T("insights.species.title", nil),
		Value:       name,
		Subtitle:    tr.T("insights.occurrences", map[string]any{"count": tr.FormatNumber(count)}),
		Description: tr.T("insights.species.description", nil),
		Priority:    8,
	}}
}

// SpeciesName picks the most specific name a record carries. The genus only
// counts when a taxon rank is recorded alongside it.
func SpeciesName(rec models.Occurrence, unidentified string) string {
	switch {
	case rec.ScientificName != "":
		return rec.ScientificName
	case rec.VernacularName != "":
		return rec.VernacularName
	case rec.TaxonRank != "" && rec.Genus != "":
		return rec.Genus
	default:
		return unidentified
	}
}

func sortedYears(yearly map[int]*models.Dataset) []int {
	years := make([]int, 0, len(yearly))
	for y, ds := range yearly {
		if ds != nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}
