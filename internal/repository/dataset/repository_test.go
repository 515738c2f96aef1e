package dataset

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
)

const baseURL = "http://data.test"

func newTestRepository(t *testing.T, cfg config.DataConfig) *Repository {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL + "/"
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = "files-index.json"
	}
	cfg.Timeout = 5 * time.Second

	repo := NewRepository(cfg, nil, nil)
	httpmock.ActivateNonDefault(repo.Client().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return repo
}

func TestListAvailableFiles_FromIndexFilteredByCity(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusOK, `{
			"files": ["simba_Penha_2023.json", "simba_Itajai_2023.json", "simba_PENHA_2024.json"],
			"lastUpdated": "2025-02-25T10:11:12.123456",
			"count": 3
		}`))

	files, err := repo.ListAvailableFiles(context.Background(), "penha")
	require.NoError(t, err)
	assert.Equal(t, []string{"simba_Penha_2023.json", "simba_PENHA_2024.json"}, files)
}

func TestListAvailableFiles_ChecksKnownFilesWhenIndexMissing(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{
		KnownFiles: []string{"simba_Penha_2021.json", "simba_Penha_2022.json", "simba_Itajai_2022.json", "simba_Penha_2023.json"},
		FallbackFiles: []string{"fallback.json"},
	})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusNotFound, ""))
	httpmock.RegisterResponder(http.MethodHead, baseURL+"/simba_Penha_2021.json",
		httpmock.NewStringResponder(http.StatusNotFound, ""))
	httpmock.RegisterResponder(http.MethodHead, baseURL+"/simba_Penha_2022.json",
		httpmock.NewStringResponder(http.StatusOK, ""))
	httpmock.RegisterResponder(http.MethodHead, baseURL+"/simba_Itajai_2022.json",
		httpmock.NewStringResponder(http.StatusOK, ""))
	httpmock.RegisterResponder(http.MethodHead, baseURL+"/simba_Penha_2023.json",
		httpmock.NewStringResponder(http.StatusOK, ""))

	files, err := repo.ListAvailableFiles(context.Background(), "Penha")
	require.NoError(t, err)
	assert.Equal(t, []string{"simba_Penha_2022.json", "simba_Penha_2023.json"}, files)
}

func TestListAvailableFiles_FallbackList(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{
		KnownFiles: []string{"simba_Penha_2021.json"},
		FallbackFiles: []string{"a.json", "b.json"},
	})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusOK, `{"files": []}`))

	files, err := repo.ListAvailableFiles(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, files)
}

func TestListAvailableFiles_NotFound(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusOK, `not json`))

	_, err := repo.ListAvailableFiles(context.Background(), "Penha")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLoadIndex(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusOK, `{"files": ["x_2024.json"], "lastUpdated": "2025-02-25T10:11:12.123456"}`))

	index, err := repo.LoadIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x_2024.json"}, index.Files)

	updated, ok := index.UpdatedAt()
	require.True(t, ok)
	assert.Equal(t, 2025, updated.Year())
}

func TestLoadDataset(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/simba_Penha_2024.json",
		httpmock.NewStringResponder(http.StatusOK, `{
			"filters": {"municipality": "Penha", "start_date": "2024-01-01"},
			"count": 2,
			"records": [
				{"scientificName": "Chelonia mydas", "eventDate": "2024-03-01T10:00:00", "decimalLatitude": "-26.78"},
				{"scientificName": "Sula leucogaster", "eventDate": ""}
			]
		}`))

	ds, err := repo.LoadDataset(context.Background(), "simba_Penha_2024.json")
	require.NoError(t, err)
	assert.Equal(t, "Penha", ds.Filters.Municipality)
	assert.Equal(t, 2, ds.Count)
	require.Len(t, ds.Records, 2)
	require.NotNil(t, ds.Records[0].Latitude)
	assert.InDelta(t, -26.78, *ds.Records[0].Latitude, 1e-9)
}

func TestLoadDataset_Errors(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/missing.json",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/broken.json",
		httpmock.NewStringResponder(http.StatusOK, `{"records": [`))
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/norecords.json",
		httpmock.NewStringResponder(http.StatusOK, `{"count": 3}`))

	tests := []struct {
		file string
		want error
	}{
		{"missing.json", models.ErrNetwork},
		{"broken.json", models.ErrParse},
		{"norecords.json", models.ErrParse},
		{"unregistered.json", models.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := repo.LoadDataset(context.Background(), tt.file)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var loadErr *models.LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.file, loadErr.Filename)
		})
	}
}

func TestMatchesCity(t *testing.T) {
	assert.True(t, MatchesCity("simba_São_José_2024.json", "são_josé"))
	assert.True(t, MatchesCity("simba_Penha_2024.json", ""))
	assert.False(t, MatchesCity("simba_Itajai_2024.json", "Penha"))
	assert.Equal(t, []string{"a", "b"}, FilterByCity([]string{"a", "b"}, ""))
}

func TestDiscoverReportsTierAndFreshness(t *testing.T) {
	repo := newTestRepository(t, config.DataConfig{FallbackFiles: []string{"fallback.json"}})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/files-index.json",
		httpmock.NewStringResponder(http.StatusOK, `{"files": ["simba_Penha_2024.json"], "lastUpdated": "2025-02-25T10:11:12"}`))

	d, err := repo.Discover(context.Background(), "Penha")
	require.NoError(t, err)
	assert.Equal(t, TierIndex, d.Tier)
	assert.Equal(t, "2025-02-25T10:11:12", d.LastUpdated)

	d, err = repo.Discover(context.Background(), "Itajai")
	require.NoError(t, err)
	assert.Equal(t, TierFallback, d.Tier)
	assert.Empty(t, d.LastUpdated)
}
