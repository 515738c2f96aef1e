package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/domain/models"
)

func sample() *models.Dataset {
	return &models.Dataset{Count: 6, Records: []models.Occurrence{
		{RecordNumber: "1", Locality: "Praia Grande", LifeStage: "Adulto"},
		{RecordNumber: "2", Locality: "Armação"},
		{RecordNumber: "3", Locality: "   "},
		{RecordNumber: "4", Locality: "Praia Grande"},
		{RecordNumber: "5", Locality: "praia grande"},
		{RecordNumber: "6"},
	}}
}

func numbers(view models.FilteredView) []string {
	var out []string
	for _, r := range view.Records {
		out = append(out, r.RecordNumber)
	}
	return out
}

func TestApplyEmptyValueKeepsEverything(t *testing.T) {
	ds := sample()
	view := Apply(ds, FacetLocality, "")
	assert.Equal(t, ds.Records, view.Records)
	assert.Equal(t, len(ds.Records), view.Count())

	// The view is a copy; mutating it leaves the dataset untouched.
	view.Records[0].Locality = "changed"
	assert.Equal(t, "Praia Grande", ds.Records[0].Locality)
}

func TestApplyExactCaseSensitiveMatch(t *testing.T) {
	view := Apply(sample(), FacetLocality, "Praia Grande")
	assert.Equal(t, []string{"1", "4"}, numbers(view))
	for _, r := range view.Records {
		assert.Equal(t, "Praia Grande", r.Locality)
	}

	assert.Empty(t, Apply(sample(), FacetLocality, "Praia").Records)
	assert.Equal(t, []string{"1"}, numbers(Apply(sample(), FacetLifeStage, "Adulto")))
}

func TestApplyNilDataset(t *testing.T) {
	view := Apply(nil, FacetLocality, "x")
	assert.NotNil(t, view.Records)
	assert.Zero(t, view.Count())
}

func TestDistinctValues(t *testing.T) {
	assert.Equal(t, []string{"Armação", "Praia Grande", "praia grande"}, DistinctValues(sample(), FacetLocality))
	assert.Nil(t, DistinctValues(nil, FacetLocality))
}

func TestParseFacet(t *testing.T) {
	f, err := ParseFacet("")
	require.NoError(t, err)
	assert.Equal(t, FacetLocality, f)

	f, err = ParseFacet("habitat")
	require.NoError(t, err)
	assert.Equal(t, FacetHabitat, f)

	_, err = ParseFacet("eventDate")
	assert.Error(t, err)
}
