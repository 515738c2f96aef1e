package simba

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<SimpleDarwinRecordSet xmlns="http://rs.tdwg.org/dwc/xsd/simpledarwincore/" xmlns:dwc="http://rs.tdwg.org/dwc/terms/">
  <SimpleDarwinRecord>
    <dwc:recordNumber>4711</dwc:recordNumber>
    <dwc:scientificName>Chelonia mydas</dwc:scientificName>
    <dwc:eventDate>2024-03-01T10:00:00</dwc:eventDate>
    <dwc:municipality>Penha</dwc:municipality>
    <dwc:decimalLatitude>-26.78</dwc:decimalLatitude>
    <dwc:individualCount>1</dwc:individualCount>
    <dwc:measurementType>["Comprimento", "Peso"]</dwc:measurementType>
    <dwc:measurementValue>["45", "12"]</dwc:measurementValue>
    <dwc:associatedMedia>https://a.test/1.jpg, https://a.test/2.jpg</dwc:associatedMedia>
  </SimpleDarwinRecord>
  <SimpleDarwinRecord>
    <dwc:recordNumber>4712</dwc:recordNumber>
    <dwc:locality></dwc:locality>
    <dwc:decimalLatitude>n/a</dwc:decimalLatitude>
  </SimpleDarwinRecord>
</SimpleDarwinRecordSet>`

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "4711", first.RecordNumber)
	assert.Equal(t, "Chelonia mydas", first.ScientificName)
	assert.Equal(t, "Penha", first.Municipality)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, -26.78, *first.Latitude, 1e-9)
	require.NotNil(t, first.IndividualCount)
	assert.Equal(t, 1, *first.IndividualCount)
	assert.Equal(t, []string{"https://a.test/1.jpg", "https://a.test/2.jpg"}, first.AssociatedMedia)
	assert.Equal(t, []models.Measurement{{Type: "Comprimento", Value: "45"}, {Type: "Peso", Value: "12"}}, first.Measurements())

	second := records[1]
	assert.Equal(t, "4712", second.RecordNumber)
	assert.Empty(t, second.Locality)
	assert.Nil(t, second.Latitude)
}

func TestParseRecordsEmptyAndMalformed(t *testing.T) {
	records, err := ParseRecords(strings.NewReader(`<SimpleDarwinRecordSet/>`))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseRecords(strings.NewReader(`<SimpleDarwinRecordSet><SimpleDarwinRecord><a>1</b>`))
	assert.ErrorIs(t, err, models.ErrParse)
}

func TestFetchOccurrences(t *testing.T) {
	c := NewClient(config.CollectorConfig{BaseURL: "http://simba.test/api/v1/occurrences/public"})
	httpmock.ActivateNonDefault(c.HTTPClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponderWithQuery(http.MethodGet, "http://simba.test/api/v1/occurrences/public",
		map[string]string{"municipality": "Penha", "start_date": "2024-01-01"},
		httpmock.NewStringResponder(http.StatusOK, feed))
	httpmock.RegisterResponderWithQuery(http.MethodGet, "http://simba.test/api/v1/occurrences/public",
		map[string]string{"municipality": "Nowhere", "start_date": "2024-01-01"},
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	records, err := c.FetchOccurrences(context.Background(), "Penha", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = c.FetchOccurrences(context.Background(), "Nowhere", "2024-01-01")
	assert.ErrorIs(t, err, models.ErrNetwork)
}
