package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	I18n      I18nConfig
	Insights  InsightsConfig
	Collector CollectorConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
	// StaticDataDir, when set, is served under /data.
	StaticDataDir string
	// SessionIdleTTL evicts dashboard sessions not used for this long.
	SessionIdleTTL time.Duration
}

// DataConfig describes where published data files live and how they are discovered.
type DataConfig struct {
	BaseURL       string
	IndexFile     string
	KnownFiles []string
	FallbackFiles []string
	DefaultCity   string
	Timeout       time.Duration
}

// I18nConfig holds localization settings.
type I18nConfig struct {
	DefaultLanguage  string
	FallbackLanguage string
	// RemoteBaseURL, when set, serves {base}/assets/i18n/{lang}.json packs.
	RemoteBaseURL string
}

// InsightsConfig holds insight ranking options.
type InsightsConfig struct {
	TopN     int
	CacheTTL time.Duration
}

// CollectorConfig contains settings for the SIMBA public API collector.
type CollectorConfig struct {
	BaseURL      string
	Cities       []string
	OutputDir    string
	CronSchedule string
	Timezone     string
	Delay        time.Duration
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Export to Sheets is disabled when CredentialsPath is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ExportRange     string
}

// Enabled reports whether Sheets export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// MongoDBConfig holds settings for the collected dataset archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether the archive is configured.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

var defaultKnownFiles = []string{
	"simba_Penha_2021.json",
	"simba_Penha_2022.json",
	"simba_Penha_2023.json",
	"simba_Penha_2024.json",
	"simba_Penha_2025.json",
	"simba_Penha_2025-02-25_to_2024-01-01.json",
	"simba_Penha_2025-02-25_to_2025-01-01.json",
}

var defaultFallbackFiles = []string{
	"simba_Penha_2025-02-25_to_2024-01-01.json",
	"simba_Penha_2025-02-25_to_2025-01-01.json",
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := getenvDuration("DATA_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	delay, err := getenvDuration("COLLECTOR_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	topN, err := getenvInt("INSIGHTS_TOP_N", 6)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getenvDuration("INSIGHTS_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getenvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8080"),
			LogLevel:       getenvWithDefault("LOG_LEVEL", "info"),
			StaticDataDir:  os.Getenv("STATIC_DATA_DIR"),
			SessionIdleTTL: sessionTTL,
		},
		Data: DataConfig{
			BaseURL:       getenvWithDefault("DATA_BASE_URL", "http://localhost:8080/data"),
			IndexFile:     getenvWithDefault("DATA_INDEX_FILE", "files-index.json"),
			KnownFiles: getenvList("DATA_KNOWN_FILES", defaultKnownFiles),
			FallbackFiles: getenvList("DATA_FALLBACK_FILES", defaultFallbackFiles),
			DefaultCity:   getenvWithDefault("DEFAULT_CITY", "Penha"),
			Timeout:       timeout,
		},
		I18n: I18nConfig{
			DefaultLanguage:  getenvWithDefault("DEFAULT_LANGUAGE", "pt"),
			FallbackLanguage: getenvWithDefault("FALLBACK_LANGUAGE", "pt"),
			RemoteBaseURL:    os.Getenv("I18N_BASE_URL"),
		},
		Insights: InsightsConfig{
			TopN:     topN,
			CacheTTL: cacheTTL,
		},
		Collector: CollectorConfig{
			BaseURL:      getenvWithDefault("SIMBA_API_URL", "https://simba.petrobras.com.br/simba/web/api/v1/occurrences/public"),
			Cities:       getenvList("COLLECTOR_CITIES", []string{"Penha"}),
			OutputDir:    getenvWithDefault("COLLECTOR_OUTPUT_DIR", "data"),
			CronSchedule: os.Getenv("COLLECT_CRON_SCHEDULE"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
			Delay:        delay,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_EXPORT_ID"),
			ExportRange:     getenvWithDefault("GOOGLE_SHEET_EXPORT_RANGE", "Occurrences!A:L"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "simba"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Server.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be positive")
	}

	if c.Data.BaseURL == "" {
		return errors.New("DATA_BASE_URL must not be empty")
	}

	if c.Data.IndexFile == "" {
		return errors.New("DATA_INDEX_FILE must not be empty")
	}

	if c.Data.Timeout <= 0 {
		return errors.New("DATA_TIMEOUT must be positive")
	}

	switch {
	case c.I18n.DefaultLanguage == "":
		return errors.New("DEFAULT_LANGUAGE must not be empty")
	case c.I18n.FallbackLanguage == "":
		return errors.New("FALLBACK_LANGUAGE must not be empty")
	}

	if c.Insights.TopN <= 0 {
		return errors.New("INSIGHTS_TOP_N must be positive")
	}

	if c.Collector.CronSchedule != "" && len(c.Collector.Cities) == 0 {
		return errors.New("COLLECTOR_CITIES must be provided when COLLECT_CRON_SCHEDULE is set")
	}

	if c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_EXPORT_ID must be provided with GOOGLE_SHEETS_CREDENTIALS_PATH")
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
