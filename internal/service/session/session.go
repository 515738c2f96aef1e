// Package session holds the per-client dashboard state: selected city and
// period, the loaded dataset, the active filter and the UI language.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/dataset"
	"github.com/mamadbah2/simba/internal/service/filter"
	"github.com/mamadbah2/simba/internal/service/localization"
	"github.com/mamadbah2/simba/internal/service/periods"
)

var (
	// ErrSuperseded reports a load whose result arrived after a newer selection began.
	ErrSuperseded = errors.New("load superseded by a newer selection")
	// ErrNoDataset is returned by operations that need a loaded dataset.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrUnknownPeriod is returned when the selected year is not offered.
	ErrUnknownPeriod = errors.New("unknown period")
)

// Repository discovers and loads data files.
type Repository interface {
	dataset.Loader
	Discover(ctx context.Context, city string) (dataset.Discovery, error)
}

// PeriodResolver turns filenames into selectable periods.
type PeriodResolver interface {
	Resolve(ctx context.Context, filenames []string, city string) []models.Period
}

// Languages switches the active language pack and formats values for display.
type Languages interface {
	SetLanguage(ctx context.Context, lang string) (localization.State, error)
	DefaultLanguage() string
	FormatDate(lang string, t time.Time) string
	FormatNumber(lang string, n int) string
}

// Info is the dataset summary shown next to the map.
type Info struct {
	City         string     `json:"city"`
	Language     string     `json:"language"`
	Year         string     `json:"year,omitempty"`
	File         string     `json:"file,omitempty"`
	HasData      bool       `json:"hasData"`
	Municipality string     `json:"municipality,omitempty"`
	StartDate    string     `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Total        int        `json:"total"`
	Showing      int        `json:"showing"`
	Facet        string     `json:"facet"`
	FilterValue  string     `json:"filterValue,omitempty"`
	LastUpdated  string     `json:"lastUpdated,omitempty"`

	// Display forms in the session language.
	EndDateText     string `json:"endDateText,omitempty"`
	TotalText       string `json:"totalText,omitempty"`
	LastUpdatedText string `json:"lastUpdatedText,omitempty"`
}

// Session is one client's dashboard state. Loads run without holding the
// lock; each takes a generation number first and only commits if no newer
// load started in the meantime.
type Session struct {
	ID string

	mu          sync.Mutex
	generation  uint64
	city        string
	language    string
	periods     []models.Period
	lastUpdated string
	year        string
	filename    string
	dataset     *models.Dataset
	facet       filter.Facet
	value       string
	view        models.FilteredView

	deps *Manager
}

func newSession(id string, deps *Manager) *Session {
	return &Session{
		ID:       id,
		language: deps.languages.DefaultLanguage(),
		facet:    filter.FacetLocality,
		view:     models.FilteredView{Facet: string(filter.FacetLocality), Records: []models.Occurrence{}},
		deps:     deps,
	}
}

// SelectCity discovers the city's files, resolves periods and loads the most
// recent one. An exhausted discovery leaves the session without data.
func (s *Session) SelectCity(ctx context.Context, city string) ([]models.Period, error) {
	gen := s.begin()
	logger := s.deps.logger.With(zap.String("session", s.ID), zap.String("city", city))

	discovery, err := s.deps.repo.Discover(ctx, city)
	if err != nil {
		logger.Warn("no data files for city", zap.Error(err))
	}
	var ps []models.Period
	if len(discovery.Files) > 0 {
		ps = s.deps.resolver.Resolve(ctx, discovery.Files, city)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.deps.metrics.LoadSuperseded()
		logger.Debug("dropping superseded city selection")
		return nil, ErrSuperseded
	}
	s.city = city
	s.periods = ps
	s.lastUpdated = discovery.LastUpdated
	s.clearDatasetLocked()
	s.mu.Unlock()

	logger.Info("city selected", zap.Int("files", len(discovery.Files)), zap.Int("periods", len(ps)), zap.String("tier", discovery.Tier))

	if len(ps) == 0 {
		return ps, nil
	}
	if _, err := s.loadPeriod(ctx, gen, ps[0].Year, false); err != nil {
		return nil, err
	}
	return append([]models.Period(nil), ps...), nil
}

// SelectPeriod loads the dataset backing year. Failures surface only when the
// selection was user initiated; automatic loads log and leave no data.
func (s *Session) SelectPeriod(ctx context.Context, year string, userInitiated bool) (Info, error) {
	s.mu.Lock()
	if _, ok := periods.Find(s.periods, year); !ok {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownPeriod, year)
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	return s.loadPeriod(ctx, gen, year, userInitiated)
}

// loadPeriod fetches year under generation gen. It neither fetches nor
// commits once a newer selection has started.
func (s *Session) loadPeriod(ctx context.Context, gen uint64, year string, userInitiated bool) (Info, error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.deps.metrics.LoadSuperseded()
		return Info{}, ErrSuperseded
	}
	period, ok := periods.Find(s.periods, year)
	if !ok {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownPeriod, year)
	}
	city := s.city
	s.mu.Unlock()

	file := periods.PickFile(period.Files, city)
	logger := s.deps.logger.With(zap.String("session", s.ID), zap.String("file", file))

	ds, err := s.deps.repo.LoadDataset(ctx, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.deps.metrics.LoadSuperseded()
		logger.Debug("dropping superseded dataset load")
		return Info{}, ErrSuperseded
	}

	if err != nil {
		s.clearDatasetLocked()
		if userInitiated {
			logger.Error("dataset load failed", zap.Error(err))
			return Info{}, fmt.Errorf("load period %s: %w", year, err)
		}
		logger.Warn("automatic dataset load failed", zap.Error(err))
		return s.infoLocked(), nil
	}

	s.year = year
	s.filename = file
	s.dataset = ds
	s.facet = filter.FacetLocality
	s.value = ""
	s.view = filter.Apply(ds, s.facet, s.value)

	logger.Info("dataset loaded", zap.String("year", year), zap.Int("records", len(ds.Records)))
	return s.infoLocked(), nil
}

// ApplyFilter narrows the current dataset by facet. An empty value clears the filter.
func (s *Session) ApplyFilter(facet filter.Facet, value string) (models.FilteredView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return models.FilteredView{}, ErrNoDataset
	}
	s.facet = facet
	s.value = value
	s.view = filter.Apply(s.dataset, facet, value)
	return copyView(s.view), nil
}

// View returns the current filtered view.
func (s *Session) View() models.FilteredView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyView(s.view)
}

// FacetValues lists the selectable values for facet in the current dataset.
func (s *Session) FacetValues(facet filter.Facet) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.DistinctValues(s.dataset, facet)
}

// SetLanguage switches the session language and returns the state to publish.
func (s *Session) SetLanguage(ctx context.Context, lang string) (localization.State, error) {
	state, err := s.deps.languages.SetLanguage(ctx, lang)
	if err != nil {
		return localization.State{}, err
	}
	s.mu.Lock()
	s.language = state.Language
	s.mu.Unlock()
	return state, nil
}

// Language returns the session language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// City returns the selected city.
func (s *Session) City() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city
}

// Periods returns the selectable periods, newest first.
func (s *Session) Periods() []models.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Period(nil), s.periods...)
}

// Info summarizes the loaded dataset.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

// Reset returns the session to its initial state. In-flight loads are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.city = ""
	s.language = s.deps.languages.DefaultLanguage()
	s.periods = nil
	s.lastUpdated = ""
	s.clearDatasetLocked()
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Session) clearDatasetLocked() {
	s.year = ""
	s.filename = ""
	s.dataset = nil
	s.facet = filter.FacetLocality
	s.value = ""
	s.view = models.FilteredView{Facet: string(filter.FacetLocality), Records: []models.Occurrence{}}
}

func (s *Session) infoLocked() Info {
	info := Info{
		City:        s.city,
		Language:    s.language,
		Year:        s.year,
		File:        s.filename,
		Facet:       string(s.facet),
		FilterValue: s.value,
		Showing:     s.view.Count(),
		LastUpdated: s.lastUpdated,
	}
	langs := s.deps.languages
	if updated, ok := (models.FileIndex{LastUpdated: s.lastUpdated}).UpdatedAt(); ok {
		info.LastUpdatedText = langs.FormatDate(s.language, updated)
	}
	if s.dataset == nil {
		return info
	}
	info.HasData = true
	info.Municipality = s.dataset.Filters.Municipality
	info.StartDate = s.dataset.Filters.StartDate
	info.Total = s.dataset.RecordCount()
	info.TotalText = langs.FormatNumber(s.language, info.Total)
	info.EndDate = s.dataset.DateRange().End
	var end time.Time
	if info.EndDate != nil {
		end = *info.EndDate
	}
	info.EndDateText = langs.FormatDate(s.language, end)
	return info
}

func copyView(v models.FilteredView) models.FilteredView {
	v.Records = append(make([]models.Occurrence, 0, len(v.Records)), v.Records...)
	return v
}
