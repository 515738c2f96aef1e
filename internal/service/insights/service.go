package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/dataset"
	"github.com/mamadbah2/simba/internal/service/periods"
)

// Source discovers and loads the published data files.
type Source interface {
	dataset.Loader
	Discover(ctx context.Context, city string) (dataset.Discovery, error)
}

// Service loads a city's multi-year data and derives insights and yearly
// statistics from it. Loaded years are cached per city for ttl.
type Service struct {
	source Source
	engine *Engine
	cache  *cache.Cache
	logger *zap.Logger
}

// NewService wires the insights service.
func NewService(source Source, engine *Engine, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		engine: engine,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// YearlyData returns one dataset per available year for city.
func (s *Service) YearlyData(ctx context.Context, city string) (map[int]*models.Dataset, error) {
	key := cacheKey(city)
	if v, ok := s.cache.Get(key); ok {
		if yearly, ok := v.(map[int]*models.Dataset); ok {
			return yearly, nil
		}
	}

	discovery, err := s.source.Discover(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("discover files for %s: %w", city, err)
	}

	yearly, err := LoadYearly(ctx, s.source, periods.Group(discovery.Files), city, s.logger)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, yearly)
	s.logger.Info("yearly data loaded", zap.String("city", city), zap.Int("years", len(yearly)), zap.String("tier", discovery.Tier))
	return yearly, nil
}

// Insights returns the top n insights for city translated by tr.
func (s *Service) Insights(ctx context.Context, city string, tr Translator, n int) ([]models.Insight, error) {
	yearly, err := s.YearlyData(ctx, city)
	if err != nil {
		return nil, err
	}
	return Top(s.engine.Compute(yearly, tr), n), nil
}

// Series returns the yearly chart data for city, optionally narrowed to a locality.
func (s *Service) Series(ctx context.Context, city, locality string) ([]models.YearlyPoint, models.YearlySummary, error) {
	yearly, err := s.YearlyData(ctx, city)
	if err != nil {
		return nil, models.YearlySummary{}, err
	}
	points := Yearly(yearly, locality)
	return points, Summarize(points), nil
}

// Invalidate drops the cached years of city.
func (s *Service) Invalidate(city string) {
	s.cache.Delete(cacheKey(city))
}

func cacheKey(city string) string {
	return "yearly:" + cases.Fold().String(city)
}
