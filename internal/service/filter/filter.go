package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/simba/internal/domain/models"
)

// Facet names a record field the view can be narrowed by.
type Facet string

const (
	FacetLocality       Facet = "locality"
	FacetMunicipality   Facet = "municipality"
	FacetScientificName Facet = "scientificName"
	FacetLifeStage      Facet = "lifeStage"
	FacetHabitat        Facet = "habitat"
)

var facetFields = map[Facet]func(models.Occurrence) string{
	FacetLocality:       func(o models.Occurrence) string { return o.Locality },
	FacetMunicipality:   func(o models.Occurrence) string { return o.Municipality },
	FacetScientificName: func(o models.Occurrence) string { return o.ScientificName },
	FacetLifeStage:      func(o models.Occurrence) string { return o.LifeStage },
	FacetHabitat:        func(o models.Occurrence) string { return o.Habitat },
}

// ParseFacet validates a facet name. Empty means locality.
func ParseFacet(name string) (Facet, error) {
	if name == "" {
		return FacetLocality, nil
	}
	f := Facet(name)
	if _, ok := facetFields[f]; !ok {
		return "", fmt.Errorf("unknown facet %q", name)
	}
	return f, nil
}

// Value reads the facet field from a record.
func (f Facet) Value(o models.Occurrence) string {
	if get, ok := facetFields[f]; ok {
		return get(o)
	}
	return ""
}

// Apply narrows ds to records whose facet field equals value exactly.
// An empty value keeps every record. Order is preserved either way.
func Apply(ds *models.Dataset, facet Facet, value string) models.FilteredView {
	view := models.FilteredView{Facet: string(facet), Value: value}
	if ds == nil {
		view.Records = []models.Occurrence{}
		return view
	}

	if value == "" {
		view.Records = append(make([]models.Occurrence, 0, len(ds.Records)), ds.Records...)
		return view
	}

	view.Records = make([]models.Occurrence, 0)
	for _, rec := range ds.Records {
		if facet.Value(rec) == value {
			view.Records = append(view.Records, rec)
		}
	}
	return view
}

// DistinctValues lists the selectable values for facet: non-blank, unique, sorted.
func DistinctValues(ds *models.Dataset, facet Facet) []string {
	if ds == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range ds.Records {
		v := facet.Value(rec)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
