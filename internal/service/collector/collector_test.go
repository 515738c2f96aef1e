package collector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
)

type fakeClient struct {
	records map[string][]models.Occurrence
	calls   []string
}

func (f *fakeClient) FetchOccurrences(_ context.Context, municipality, startDate string) ([]models.Occurrence, error) {
	key := municipality + "/" + startDate
	f.calls = append(f.calls, key)
	recs, ok := f.records[key]
	if !ok {
		return nil, models.ErrNetwork
	}
	return recs, nil
}

type fakeArchive struct {
	saved []string
	err   error
}

func (f *fakeArchive) SaveDataset(_ context.Context, filename string, _ *models.Dataset) error {
	f.saved = append(f.saved, filename)
	return f.err
}

func newService(t *testing.T, client *fakeClient, archive *fakeArchive) *Service {
	t.Helper()
	cfg := config.CollectorConfig{OutputDir: t.TempDir(), Cities: []string{"Penha"}}
	var svc *Service
	if archive != nil {
		svc = NewService(client, cfg, archive, nil)
	} else {
		svc = NewService(client, cfg, nil, nil)
	}
	svc.now = func() time.Time { return time.Date(2025, 2, 25, 10, 0, 0, 0, time.UTC) }
	return svc
}

func readDataset(t *testing.T, path string) *models.Dataset {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	ds, err := models.DecodeDataset(data)
	require.NoError(t, err)
	return ds
}

func TestCollect(t *testing.T) {
	client := &fakeClient{records: map[string][]models.Occurrence{
		"Penha/2024-01-01": {{RecordNumber: "1"}, {RecordNumber: "2"}},
	}}
	svc := newService(t, client, nil)

	ds, err := svc.Collect(context.Background(), "Penha", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, models.DatasetFilters{Municipality: "Penha", StartDate: "2024-01-01"}, ds.Filters)
	assert.Equal(t, 2, ds.Count)

	_, err = svc.Collect(context.Background(), "Penha", "01/01/2024")
	assert.Error(t, err)
	assert.Len(t, client.calls, 1)

	_, err = svc.Collect(context.Background(), "Itajai", "2024-01-01")
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestCollectYearsSavesEmptyResults(t *testing.T) {
	lat := -26.7
	client := &fakeClient{records: map[string][]models.Occurrence{
		"Penha/2023-01-01": {{RecordNumber: "1", EventDate: "2023-05-01T10:00:00", Latitude: &lat}},
		"Penha/2024-01-01": {},
	}}
	archive := &fakeArchive{err: errors.New("archive down")}
	svc := newService(t, client, archive)

	summary, err := svc.CollectYears(context.Background(), []string{"Penha"}, []string{"2023", "2024", "2025"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, []string{"simba_Penha_2023.json", "simba_Penha_2024.json"}, summary.Files)
	assert.Equal(t, []string{"simba_Penha_2025.json"}, summary.Failed)
	assert.Equal(t, []string{"simba_Penha_2023.json", "simba_Penha_2024.json"}, archive.saved)

	ds := readDataset(t, filepath.Join(svc.cfg.OutputDir, "simba_Penha_2023.json"))
	assert.Equal(t, 1, ds.Count)
	require.NotNil(t, ds.Records[0].Latitude)
	assert.InDelta(t, -26.7, *ds.Records[0].Latitude, 1e-9)

	empty := readDataset(t, filepath.Join(svc.cfg.OutputDir, "simba_Penha_2024.json"))
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Records)
}

func TestCollectYearsHonoursCancellation(t *testing.T) {
	client := &fakeClient{records: map[string][]models.Occurrence{"Penha/2023-01-01": {}}}
	svc := newService(t, client, nil)
	svc.cfg.Delay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, err := svc.CollectYears(ctx, []string{"Penha"}, []string{"2023", "2024"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, summary.Successful)
	assert.Len(t, client.calls, 1)
}

func TestUpdateIndex(t *testing.T) {
	svc := newService(t, &fakeClient{}, nil)
	dir := svc.cfg.OutputDir
	for _, name := range []string{"simba_Penha_2024.json", "simba_Penha_2023.json", "notes.txt", IndexFilename} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	index, err := svc.UpdateIndex()
	require.NoError(t, err)
	assert.Equal(t, []string{"simba_Penha_2023.json", "simba_Penha_2024.json"}, index.Files)
	assert.Equal(t, 2, index.Count)

	data, err := os.ReadFile(filepath.Join(dir, IndexFilename))
	require.NoError(t, err)
	var written models.FileIndex
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, index.Files, written.Files)
	updated, ok := written.UpdatedAt()
	require.True(t, ok)
	assert.Equal(t, 2025, updated.Year())
}

func TestCollectCurrentYear(t *testing.T) {
	client := &fakeClient{records: map[string][]models.Occurrence{"Penha/2025-01-01": {{RecordNumber: "9"}}}}
	svc := newService(t, client, nil)

	summary, err := svc.CollectCurrentYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successful)

	data, err := os.ReadFile(filepath.Join(svc.cfg.OutputDir, IndexFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "simba_Penha_2025.json")
}

func TestDefaultFilename(t *testing.T) {
	ds := &models.Dataset{
		Filters: models.DatasetFilters{Municipality: "Penha", StartDate: "2024-01-01"},
		Records: []models.Occurrence{
			{EventDate: "2025-02-25T08:00:00"},
			{EventDate: "2025-03-01"},
			{EventDate: "2024-12-31T23:00:00"},
		},
	}
	assert.Equal(t, "simba_Penha_2025-02-25_to_2024-01-01.json", DefaultFilename(ds))
	assert.Equal(t, "simba_unknown_unknown_to_unknown.json", DefaultFilename(&models.Dataset{}))
	assert.Equal(t, "simba_Penha_2024.json", YearFilename("Penha", "2024"))
}

func TestSaveUsesDefaultFilename(t *testing.T) {
	svc := newService(t, &fakeClient{}, nil)
	ds := &models.Dataset{Filters: models.DatasetFilters{Municipality: "Penha", StartDate: "2025-01-01"}, Records: []models.Occurrence{}}

	path, err := svc.Save(context.Background(), ds, "")
	require.NoError(t, err)
	assert.Equal(t, "simba_Penha_2025-01-01_to_2025-01-01.json", filepath.Base(path))
}
