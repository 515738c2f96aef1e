package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/observability"
)

const headConcurrency = 4

// Discovery tiers, in the order they are tried.
const (
	TierIndex    = "index"
	TierKnown    = "known"
	TierFallback = "fallback"
)

// Loader fetches a single data file.
type Loader interface {
	LoadDataset(ctx context.Context, filename string) (*models.Dataset, error)
}

// Repository discovers and fetches published data files over HTTP.
type Repository struct {
	httpClient *resty.Client
	cfg        config.DataConfig
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRepository builds a resty-backed repository rooted at cfg.BaseURL.
func NewRepository(cfg config.DataConfig, metrics *observability.Metrics, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &Repository{
		httpClient: restyClient,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Client exposes the underlying HTTP client.
func (r *Repository) Client() *resty.Client {
	return r.httpClient
}

// LoadIndex fetches the published file index.
func (r *Repository) LoadIndex(ctx context.Context) (*models.FileIndex, error) {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		Get(filePath(r.cfg.IndexFile))
	if err != nil {
		return nil, &models.LoadError{Filename: r.cfg.IndexFile, Err: fmt.Errorf("%v: %w", err, models.ErrNetwork)}
	}
	if !resp.IsSuccess() {
		return nil, &models.LoadError{Filename: r.cfg.IndexFile, Err: fmt.Errorf("status %d: %w", resp.StatusCode(), models.ErrNetwork)}
	}

	var index models.FileIndex
	if err := json.Unmarshal(resp.Body(), &index); err != nil {
		return nil, &models.LoadError{Filename: r.cfg.IndexFile, Err: fmt.Errorf("%v: %w", err, models.ErrParse)}
	}
	return &index, nil
}

// Discovery is the outcome of a file listing.
type Discovery struct {
	Files []string
	Tier  string
	// LastUpdated is the index freshness stamp, empty when the index was not used.
	LastUpdated string
}

// ListAvailableFiles returns candidate data files for city (empty means any).
func (r *Repository) ListAvailableFiles(ctx context.Context, city string) ([]string, error) {
	d, err := r.Discover(ctx, city)
	if err != nil {
		return nil, err
	}
	return d.Files, nil
}

// Discover tries the published index, then HEAD checks of known names, then
// the configured fallback names. Each degradation is logged, not returned.
func (r *Repository) Discover(ctx context.Context, city string) (Discovery, error) {
	index, err := r.LoadIndex(ctx)
	if err != nil {
		r.logger.Warn("file index unavailable, probing known files", zap.Error(err))
	} else if files := FilterByCity(index.Files, city); len(files) > 0 {
		r.metrics.DiscoveryTier(TierIndex)
		return Discovery{Files: files, Tier: TierIndex, LastUpdated: index.LastUpdated}, nil
	}

	if files := r.checkKnownFiles(ctx, city); len(files) > 0 {
		r.metrics.DiscoveryTier(TierKnown)
		r.logger.Info("discovered files by probing", zap.String("city", city), zap.Int("files", len(files)))
		return Discovery{Files: files, Tier: TierKnown}, nil
	}

	if len(r.cfg.FallbackFiles) > 0 {
		r.metrics.DiscoveryTier(TierFallback)
		r.logger.Warn("no data files discovered, using fallback list", zap.String("city", city))
		return Discovery{Files: append([]string(nil), r.cfg.FallbackFiles...), Tier: TierFallback}, nil
	}

	return Discovery{}, fmt.Errorf("city %q: %w", city, models.ErrNotFound)
}

// LoadDataset fetches and decodes one data file. It never caches: a newly
// selected period always re-reads its file.
func (r *Repository) LoadDataset(ctx context.Context, filename string) (*models.Dataset, error) {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		Get(filePath(filename))
	if err != nil {
		r.metrics.DatasetLoaded("network")
		return nil, &models.LoadError{Filename: filename, Err: fmt.Errorf("%v: %w", err, models.ErrNetwork)}
	}
	if !resp.IsSuccess() {
		r.metrics.DatasetLoaded("network")
		return nil, &models.LoadError{Filename: filename, Err: fmt.Errorf("status %d: %w", resp.StatusCode(), models.ErrNetwork)}
	}

	ds, err := models.DecodeDataset(resp.Body())
	if err != nil {
		r.metrics.DatasetLoaded("parse")
		return nil, &models.LoadError{Filename: filename, Err: err}
	}

	r.metrics.DatasetLoaded("ok")
	r.logger.Debug("dataset loaded", zap.String("file", filename), zap.Int("records", len(ds.Records)))
	return ds, nil
}

func (r *Repository) checkKnownFiles(ctx context.Context, city string) []string {
	patterns := r.cfg.KnownFiles
	found := make([]bool, len(patterns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(headConcurrency)
	for i, name := range patterns {
		g.Go(func() error {
			resp, err := r.httpClient.R().SetContext(gctx).Head(filePath(name))
			if err != nil {
				r.logger.Debug("known file check failed", zap.String("file", name), zap.Error(err))
				return nil
			}
			found[i] = resp.IsSuccess()
			return nil
		})
	}
	_ = g.Wait()

	var files []string
	for i, name := range patterns {
		if found[i] {
			files = append(files, name)
		}
	}
	return FilterByCity(files, city)
}

// FilterByCity keeps filenames containing city, ignoring case. An empty city keeps everything.
func FilterByCity(files []string, city string) []string {
	if city == "" {
		return append([]string(nil), files...)
	}
	var out []string
	for _, f := range files {
		if MatchesCity(f, city) {
			out = append(out, f)
		}
	}
	return out
}

// MatchesCity reports whether filename mentions city, using Unicode case folding.
func MatchesCity(filename, city string) bool {
	if city == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(filename), fold.String(city))
}

func filePath(filename string) string {
	return "/" + url.PathEscape(filename)
}
