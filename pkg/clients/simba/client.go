package simba

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/domain/models"
)

const recordElement = "SimpleDarwinRecord"

// Client exposes the SIMBA public occurrences API.
type Client interface {
	FetchOccurrences(ctx context.Context, municipality, startDate string) ([]models.Occurrence, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a SIMBA API client for cfg.BaseURL.
func NewClient(cfg config.CollectorConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/xml").
		SetTimeout(60 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// HTTPClient exposes the underlying HTTP client.
func (c *APIClient) HTTPClient() *resty.Client {
	return c.httpClient
}

// FetchOccurrences returns every record reported for municipality since startDate (YYYY-MM-DD).
func (c *APIClient) FetchOccurrences(ctx context.Context, municipality, startDate string) ([]models.Occurrence, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"municipality": municipality,
			"start_date":   startDate,
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch simba occurrences: %v: %w", err, models.ErrNetwork)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("simba api error: code=%d: %w", resp.StatusCode(), models.ErrNetwork)
	}

	records, err := ParseRecords(strings.NewReader(resp.String()))
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParseRecords reads Simple Darwin Core records from an XML document. Element
// names are matched without their namespace; each child element becomes the
// term of the same name.
func ParseRecords(r io.Reader) ([]models.Occurrence, error) {
	dec := xml.NewDecoder(r)
	records := make([]models.Occurrence, 0)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse simba xml: %v: %w", err, models.ErrParse)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != recordElement {
			continue
		}

		terms, err := readTerms(dec)
		if err != nil {
			return nil, fmt.Errorf("parse simba record: %v: %w", err, models.ErrParse)
		}

		rec, err := toOccurrence(terms)
		if err != nil {
			return nil, fmt.Errorf("convert simba record: %v: %w", err, models.ErrParse)
		}
		records = append(records, rec)
	}
}

func readTerms(dec *xml.Decoder) (map[string]string, error) {
	terms := make(map[string]string)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var term struct {
				Text string `xml:",chardata"`
			}
			if err := dec.DecodeElement(&term, &el); err != nil {
				return nil, err
			}
			terms[el.Name.Local] = strings.TrimSpace(term.Text)
		case xml.EndElement:
			if el.Name.Local == recordElement {
				return terms, nil
			}
		}
	}
}

// toOccurrence reuses the JSON decoding of the published files, which
// already accepts every term as text.
func toOccurrence(terms map[string]string) (models.Occurrence, error) {
	var rec models.Occurrence
	raw, err := json.Marshal(terms)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(raw, &rec)
	return rec, err
}
