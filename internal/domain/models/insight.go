package models

// InsightType tags the kind of statistical observation.
type InsightType string

const (
	InsightPeak      InsightType = "peak"
	InsightLow       InsightType = "low"
	InsightCurrent   InsightType = "current"
	InsightTrend     InsightType = "trend"
	InsightHotspot   InsightType = "hotspot"
	InsightVariation InsightType = "variation"
	InsightAnomaly   InsightType = "anomaly"
	InsightSeasonal  InsightType = "seasonal"
	InsightSpecies   InsightType = "species"
)

// Insight is a derived fact about a multi-year collection. Lower priority
// values are shown first.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Value       string      `json:"value"`
	Subtitle    string      `json:"subtitle"`
	Description string      `json:"description"`
	Priority    int         `json:"priority"`
}

// YearlyPoint is one bar of the yearly occurrences chart.
type YearlyPoint struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearlySummary holds the totals shown below the yearly chart.
type YearlySummary struct {
	Total    int `json:"total"`
	Average  int `json:"average"`
	MaxYear  int `json:"maxYear"`
	MaxCount int `json:"maxCount"`
	MinYear  int `json:"minYear"`
	MinCount int `json:"minCount"`
}
