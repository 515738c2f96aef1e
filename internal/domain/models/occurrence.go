package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Occurrence is a single wildlife rescue record as exported by the SIMBA
// public API (Simple Darwin Core terms). Empty strings mean the term was absent.
type Occurrence struct {
	RecordNumber     string   `json:"recordNumber,omitempty" bson:"recordNumber,omitempty"`
	ScientificName   string   `json:"scientificName,omitempty" bson:"scientificName,omitempty"`
	VernacularName   string   `json:"vernacularName,omitempty" bson:"vernacularName,omitempty"`
	EventDate        string   `json:"eventDate,omitempty" bson:"eventDate,omitempty"`
	Municipality     string   `json:"municipality,omitempty" bson:"municipality,omitempty"`
	StateProvince    string   `json:"stateProvince,omitempty" bson:"stateProvince,omitempty"`
	Locality         string   `json:"locality,omitempty" bson:"locality,omitempty"`
	Latitude         *float64 `json:"decimalLatitude,omitempty" bson:"decimalLatitude,omitempty"`
	Longitude        *float64 `json:"decimalLongitude,omitempty" bson:"decimalLongitude,omitempty"`
	RecordedBy       string   `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
	LifeStage        string   `json:"lifeStage,omitempty" bson:"lifeStage,omitempty"`
	Sex              string   `json:"sex,omitempty" bson:"sex,omitempty"`
	Habitat          string   `json:"habitat,omitempty" bson:"habitat,omitempty"`
	IndividualCount  *int     `json:"individualCount,omitempty" bson:"individualCount,omitempty"`
	Kingdom          string   `json:"kingdom,omitempty" bson:"kingdom,omitempty"`
	Phylum           string   `json:"phylum,omitempty" bson:"phylum,omitempty"`
	Class            string   `json:"class,omitempty" bson:"class,omitempty"`
	Order            string   `json:"order,omitempty" bson:"order,omitempty"`
	Family           string   `json:"family,omitempty" bson:"family,omitempty"`
	Genus            string   `json:"genus,omitempty" bson:"genus,omitempty"`
	TaxonRank        string   `json:"taxonRank,omitempty" bson:"taxonRank,omitempty"`
	EventRemarks     string   `json:"eventRemarks,omitempty" bson:"eventRemarks,omitempty"`
	AssociatedMedia  []string `json:"associatedMedia,omitempty" bson:"associatedMedia,omitempty"`
	MeasurementType  []string `json:"measurementType,omitempty" bson:"measurementType,omitempty"`
	MeasurementValue []string `json:"measurementValue,omitempty" bson:"measurementValue,omitempty"`
	MeasurementUnit  string   `json:"measurementUnit,omitempty" bson:"measurementUnit,omitempty"`

	// Upstream text of the numeric terms, set only when it parsed.
	rawLatitude        string
	rawLongitude       string
	rawIndividualCount string
}

// Measurement is one type/value pair recorded for an occurrence.
type Measurement struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// wireOccurrence mirrors the upstream export where every term is text.
type wireOccurrence struct {
	RecordNumber     flexString `json:"recordNumber"`
	ScientificName   flexString `json:"scientificName"`
	VernacularName   flexString `json:"vernacularName"`
	EventDate        flexString `json:"eventDate"`
	Municipality     flexString `json:"municipality"`
	StateProvince    flexString `json:"stateProvince"`
	Locality         flexString `json:"locality"`
	Latitude         flexString `json:"decimalLatitude"`
	Longitude        flexString `json:"decimalLongitude"`
	RecordedBy       flexString `json:"recordedBy"`
	LifeStage        flexString `json:"lifeStage"`
	Sex              flexString `json:"sex"`
	Habitat          flexString `json:"habitat"`
	IndividualCount  flexString `json:"individualCount"`
	Kingdom          flexString `json:"kingdom"`
	Phylum           flexString `json:"phylum"`
	Class            flexString `json:"class"`
	Order            flexString `json:"order"`
	Family           flexString `json:"family"`
	Genus            flexString `json:"genus"`
	TaxonRank        flexString `json:"taxonRank"`
	EventRemarks     flexString `json:"eventRemarks"`
	AssociatedMedia  flexList   `json:"associatedMedia"`
	MeasurementType  flexList   `json:"measurementType"`
	MeasurementValue flexList   `json:"measurementValue"`
	MeasurementUnit  flexString `json:"measurementUnit"`
}

// UnmarshalJSON accepts both the raw text export and the normalized form
// this type marshals to. Malformed optional terms are dropped, never the record.
func (o *Occurrence) UnmarshalJSON(data []byte) error {
	var w wireOccurrence
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*o = Occurrence{
		RecordNumber:     string(w.RecordNumber),
		ScientificName:   string(w.ScientificName),
		VernacularName:   string(w.VernacularName),
		EventDate:        string(w.EventDate),
		Municipality:     string(w.Municipality),
		StateProvince:    string(w.StateProvince),
		Locality:         string(w.Locality),
		Latitude:         parseOptionalFloat(string(w.Latitude)),
		Longitude:        parseOptionalFloat(string(w.Longitude)),
		RecordedBy:       string(w.RecordedBy),
		LifeStage:        string(w.LifeStage),
		Sex:              string(w.Sex),
		Habitat:          string(w.Habitat),
		IndividualCount:  parseOptionalInt(string(w.IndividualCount)),
		Kingdom:          string(w.Kingdom),
		Phylum:           string(w.Phylum),
		Class:            string(w.Class),
		Order:            string(w.Order),
		Family:           string(w.Family),
		Genus:            string(w.Genus),
		TaxonRank:        string(w.TaxonRank),
		EventRemarks:     string(w.EventRemarks),
		AssociatedMedia:  w.AssociatedMedia.media(),
		MeasurementType:  w.MeasurementType.values,
		MeasurementValue: w.MeasurementValue.values,
		MeasurementUnit:  string(w.MeasurementUnit),
	}
	if o.Latitude != nil {
		o.rawLatitude = strings.TrimSpace(string(w.Latitude))
	}
	if o.Longitude != nil {
		o.rawLongitude = strings.TrimSpace(string(w.Longitude))
	}
	if o.IndividualCount != nil {
		o.rawIndividualCount = strings.TrimSpace(string(w.IndividualCount))
	}
	return nil
}

// MarshalJSON writes the numeric terms with their upstream literal so a
// decoded file re-encodes without reformatting them.
func (o Occurrence) MarshalJSON() ([]byte, error) {
	type plain Occurrence
	return json.Marshal(struct {
		plain
		Latitude        json.Number `json:"decimalLatitude,omitempty"`
		Longitude       json.Number `json:"decimalLongitude,omitempty"`
		IndividualCount json.Number `json:"individualCount,omitempty"`
	}{
		plain:           plain(o),
		Latitude:        numberLiteral(o.rawLatitude, numberText("", o.Latitude)),
		Longitude:       numberLiteral(o.rawLongitude, numberText("", o.Longitude)),
		IndividualCount: numberLiteral(o.rawIndividualCount, countText(o.IndividualCount)),
	})
}

// LatitudeText is the latitude as the upstream wrote it.
func (o Occurrence) LatitudeText() string {
	return numberText(o.rawLatitude, o.Latitude)
}

// LongitudeText is the longitude as the upstream wrote it.
func (o Occurrence) LongitudeText() string {
	return numberText(o.rawLongitude, o.Longitude)
}

// IndividualCountText is the individual count as the upstream wrote it.
func (o Occurrence) IndividualCountText() string {
	if o.rawIndividualCount != "" {
		return o.rawIndividualCount
	}
	return countText(o.IndividualCount)
}

// numberLiteral returns the first candidate that is already a JSON number.
func numberLiteral(candidates ...string) json.Number {
	for _, text := range candidates {
		if text == "" || !json.Valid([]byte(text)) {
			continue
		}
		if c := text[0]; c != '-' && (c < '0' || c > '9') {
			continue
		}
		return json.Number(text)
	}
	return ""
}

func countText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func numberText(raw string, v *float64) string {
	if raw != "" {
		return raw
	}
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// EventTime parses the event date. It returns ErrDateParse when the date is
// missing or in an unknown layout.
func (o Occurrence) EventTime() (time.Time, error) {
	return ParseEventDate(o.EventDate)
}

// Measurements pairs measurement types with their values, skipping blanks.
func (o Occurrence) Measurements() []Measurement {
	n := min(len(o.MeasurementType), len(o.MeasurementValue))
	out := make([]Measurement, 0, n)
	for i := 0; i < n; i++ {
		if strings.TrimSpace(o.MeasurementValue[i]) == "" {
			continue
		}
		out = append(out, Measurement{
			Type:  o.MeasurementType[i],
			Value: o.MeasurementValue[i],
			Unit:  o.MeasurementUnit,
		})
	}
	return out
}

// ParseEventDate parses Darwin Core event dates as they appear in SIMBA exports.
func ParseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty event date: %w", ErrDateParse)
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("event date %q: %w", value, ErrDateParse)
}

func parseOptionalFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseOptionalInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return nil
		}
		n = int(f)
	}
	return &n
}

// flexString decodes strings, numbers and null into text. Numbers keep
// their literal form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexString(v)
	case json.Number:
		*f = flexString(v.String())
	case bool:
		*f = flexString(strconv.FormatBool(v))
	default:
		*f = ""
	}
	return nil
}

// flexList decodes either a JSON array of strings or a string holding one.
// The raw string is kept so comma-separated media lists can be split.
type flexList struct {
	raw    string
	values []string
}

func (f *flexList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []any:
		f.values = stringsOf(v)
	case string:
		f.raw = v
		var list []any
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			f.values = stringsOf(list)
		}
	}
	return nil
}

func (f flexList) media() []string {
	if f.values != nil {
		return compact(f.values)
	}
	if f.raw == "" {
		return nil
	}
	return compact(strings.Split(f.raw, ","))
}

func stringsOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
