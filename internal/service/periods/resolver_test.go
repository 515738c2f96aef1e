package periods

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/domain/models"
)

type fakeLoader struct {
	datasets map[string]*models.Dataset
	calls    []string
}

func (f *fakeLoader) LoadDataset(_ context.Context, filename string) (*models.Dataset, error) {
	f.calls = append(f.calls, filename)
	ds, ok := f.datasets[filename]
	if !ok {
		return nil, &models.LoadError{Filename: filename, Err: fmt.Errorf("status 404: %w", models.ErrNetwork)}
	}
	return ds, nil
}

func records(dates ...string) *models.Dataset {
	ds := &models.Dataset{}
	for _, d := range dates {
		ds.Records = append(ds.Records, models.Occurrence{EventDate: d})
	}
	ds.Count = len(ds.Records)
	return ds
}

func TestGroupPrefersCleanYearFiles(t *testing.T) {
	files := []string{
		"simba_Penha_2025-02-25_to_2024-01-01.json",
		"simba_Penha_2023.json",
		"simba_Penha_2025.json",
		"simba_Penha_2024.json",
	}

	periods := Group(files)
	require.Len(t, periods, 3)
	assert.Equal(t, "2025", periods[0].Year)
	assert.Equal(t, []string{"simba_Penha_2025.json"}, periods[0].Files)
	assert.Equal(t, "2024", periods[1].Year)
	assert.Equal(t, "2023", periods[2].Year)
}

func TestGroupMatchesCleanYearAnywhereInName(t *testing.T) {
	files := []string{
		"simba_Penha_2025-02-25_to_2024-01-01.json",
		"backup_simba_Penha_2023.json",
		"data/simba_Penha_2024.json",
	}

	periods := Group(files)
	require.Len(t, periods, 2)
	assert.Equal(t, "2024", periods[0].Year)
	assert.Equal(t, []string{"data/simba_Penha_2024.json"}, periods[0].Files)
	assert.Equal(t, "2023", periods[1].Year)
	assert.Equal(t, []string{"backup_simba_Penha_2023.json"}, periods[1].Files)
}

func TestGroupFallsBackToFirstYearRun(t *testing.T) {
	files := []string{
		"simba_Penha_2025-02-25_to_2024-01-01.json",
		"simba_Penha_2025-02-25_to_2025-01-01.json",
		"export_2019_final.json",
		"readme.json",
	}

	periods := Group(files)
	require.Len(t, periods, 2)
	assert.Equal(t, "2025", periods[0].Year)
	assert.Equal(t, []string{"simba_Penha_2025-02-25_to_2024-01-01.json"}, periods[0].Files)
	assert.Equal(t, "2019", periods[1].Year)
}

func TestGroupIsIdempotent(t *testing.T) {
	files := []string{"simba_Penha_2023.json", "simba_Penha_2021.json", "simba_Penha_2022.json"}
	assert.Equal(t, Group(files), Group(files))
}

func TestResolveDateRanges(t *testing.T) {
	loader := &fakeLoader{datasets: map[string]*models.Dataset{
		"simba_Penha_2024.json": records("2024-05-10T08:00:00", "", "not a date", "2024-01-02", "2024-11-30T23:59:00Z"),
		"simba_Penha_2023.json": records("", "garbage"),
	}}
	r := NewResolver(loader, nil)

	periods := r.Resolve(context.Background(), []string{"simba_Penha_2023.json", "simba_Penha_2024.json", "simba_Penha_2022.json"}, "Penha")
	require.Len(t, periods, 3)

	p2024 := periods[0]
	require.True(t, p2024.DateRange.Resolved())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *p2024.DateRange.Start)
	assert.Equal(t, time.Date(2024, 11, 30, 23, 59, 0, 0, time.UTC), *p2024.DateRange.End)

	// No parsable dates leaves the range unresolved.
	assert.False(t, periods[1].DateRange.Resolved())
	// Load failure keeps the period selectable.
	assert.Equal(t, "2022", periods[2].Year)
	assert.Nil(t, periods[2].DateRange.Start)

	// Exactly one file loaded per period, newest first.
	assert.Equal(t, []string{"simba_Penha_2024.json", "simba_Penha_2023.json", "simba_Penha_2022.json"}, loader.calls)
}

func TestPickFilePrefersCity(t *testing.T) {
	assert.Equal(t, "b_penha_2024.json", PickFile([]string{"a_itajai_2024.json", "b_penha_2024.json"}, "Penha"))
	assert.Equal(t, "a_itajai_2024.json", PickFile([]string{"a_itajai_2024.json"}, "Penha"))
	assert.Equal(t, "", PickFile(nil, "Penha"))
}

func TestExtractYearAndFind(t *testing.T) {
	assert.Equal(t, "2025", ExtractYear("simba_Penha_2025-02-25_to_2024-01-01.json"))
	assert.Equal(t, "", ExtractYear("simba_Penha.json"))

	p, ok := Find(Group([]string{"simba_Penha_2023.json"}), "2023")
	require.True(t, ok)
	assert.Equal(t, "2023", p.DisplayName)
	_, ok = Find(nil, "2023")
	assert.False(t, ok)
}
