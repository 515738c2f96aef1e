// Package collector pulls occurrence data from the SIMBA public API and
// publishes it as the JSON files and index the dashboard reads.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/mongodb"
	"github.com/mamadbah2/simba/pkg/clients/simba"
)

// IndexFilename is the index written next to the data files.
const IndexFilename = "files-index.json"

// Summary reports a batch collection.
type Summary struct {
	Successful int      `json:"successful"`
	Total      int      `json:"total"`
	Files      []string `json:"files"`
	Failed     []string `json:"failed,omitempty"`
}

// Service collects datasets and maintains the published files.
type Service struct {
	client  simba.Client
	cfg     config.CollectorConfig
	archive mongodb.Repository
	now     func() time.Time
	logger  *zap.Logger
}

// NewService wires a collector. archive may be nil.
func NewService(client simba.Client, cfg config.CollectorConfig, archive mongodb.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		cfg:     cfg,
		archive: archive,
		now:     time.Now,
		logger:  logger,
	}
}

// Collect fetches every record for city since startDate.
func (s *Service) Collect(ctx context.Context, city, startDate string) (*models.Dataset, error) {
	if _, err := time.Parse("2006-01-02", startDate); err != nil {
		return nil, fmt.Errorf("start date %q must be YYYY-MM-DD: %w", startDate, err)
	}

	records, err := s.client.FetchOccurrences(ctx, city, startDate)
	if err != nil {
		return nil, fmt.Errorf("collect %s since %s: %w", city, startDate, err)
	}
	if records == nil {
		records = []models.Occurrence{}
	}

	s.logger.Info("occurrences collected",
		zap.String("municipality", city),
		zap.String("start_date", startDate),
		zap.Int("records", len(records)),
	)
	return &models.Dataset{
		Filters: models.DatasetFilters{Municipality: city, StartDate: startDate},
		Count:   len(records),
		Records: records,
	}, nil
}

// Save writes ds into the output directory and archives it when an archive
// is configured. An empty filename uses DefaultFilename.
func (s *Service) Save(ctx context.Context, ds *models.Dataset, filename string) (string, error) {
	if filename == "" {
		filename = DefaultFilename(ds)
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.cfg.OutputDir, filename)
	if err := writeJSON(path, ds); err != nil {
		return "", err
	}

	if s.archive != nil {
		if err := s.archive.SaveDataset(ctx, filename, ds); err != nil {
			s.logger.Error("failed to archive dataset", zap.String("file", filename), zap.Error(err))
		}
	}

	s.logger.Info("dataset saved", zap.String("path", path), zap.Int("records", ds.Count))
	return path, nil
}

// CollectYears collects one file per city and year, starting each year on
// January 1st. Requests run one at a time with the configured delay between
// them. Empty results are saved too.
func (s *Service) CollectYears(ctx context.Context, cities, years []string) (Summary, error) {
	summary := Summary{Total: len(cities) * len(years)}

	first := true
	for _, city := range cities {
		for _, year := range years {
			if !first {
				if err := s.pause(ctx); err != nil {
					return summary, err
				}
			}
			first = false

			filename := YearFilename(city, year)
			ds, err := s.Collect(ctx, city, year+"-01-01")
			if err != nil {
				s.logger.Error("collection failed", zap.String("city", city), zap.String("year", year), zap.Error(err))
				summary.Failed = append(summary.Failed, filename)
				continue
			}
			if _, err := s.Save(ctx, ds, filename); err != nil {
				s.logger.Error("save failed", zap.String("file", filename), zap.Error(err))
				summary.Failed = append(summary.Failed, filename)
				continue
			}
			summary.Successful++
			summary.Files = append(summary.Files, filename)
		}
	}

	s.logger.Info("collection finished", zap.Int("successful", summary.Successful), zap.Int("total", summary.Total))
	return summary, nil
}

// CollectCurrentYear refreshes the current year's file for every configured
// city and rewrites the index.
func (s *Service) CollectCurrentYear(ctx context.Context) (Summary, error) {
	year := strconv.Itoa(s.now().Year())
	summary, err := s.CollectYears(ctx, s.cfg.Cities, []string{year})
	if err != nil {
		return summary, err
	}
	if _, err := s.UpdateIndex(); err != nil {
		return summary, err
	}
	return summary, nil
}

// UpdateIndex lists the JSON data files in the output directory and rewrites
// the index. Filenames are sorted.
func (s *Service) UpdateIndex() (*models.FileIndex, error) {
	entries, err := os.ReadDir(s.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == IndexFilename || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	index := &models.FileIndex{
		Files:       files,
		LastUpdated: s.now().Format(time.RFC3339),
		Count:       len(files),
	}
	if err := writeJSON(filepath.Join(s.cfg.OutputDir, IndexFilename), index); err != nil {
		return nil, err
	}

	s.logger.Info("files index updated", zap.Int("files", len(files)))
	return index, nil
}

// YearFilename names the file holding one city's year.
func YearFilename(city, year string) string {
	return fmt.Sprintf("simba_%s_%s.json", city, year)
}

// DefaultFilename names an ad hoc collection by its latest event date and
// start date. Only dated timestamps count towards the end date.
func DefaultFilename(ds *models.Dataset) string {
	municipality := ds.Filters.Municipality
	if municipality == "" {
		municipality = "unknown"
	}
	start := ds.Filters.StartDate
	if start == "" {
		start = "unknown"
	}

	end := start
	latest := ""
	for _, rec := range ds.Records {
		day, _, ok := strings.Cut(rec.EventDate, "T")
		if ok && day > latest {
			latest = day
		}
	}
	if latest != "" {
		end = latest
	}
	return fmt.Sprintf("simba_%s_%s_to_%s.json", municipality, end, start)
}

func (s *Service) pause(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
