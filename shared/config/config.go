package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"video-trend-agent/shared/jst"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvYouTubeAPIKey  = "YOUTUBE_API_KEY"
	EnvServiceAccount = "GCP_SERVICE_ACCOUNT_KEY"
	EnvSpreadsheetID  = "SPREADSHEET_ID"
	EnvKeywordsFile   = "KEYWORDS_FILE"
	EnvConfigFile     = "CONFIG_FILE"
)

var (
	// ErrMissingEnv marks a required environment variable that is unset.
	ErrMissingEnv = errors.New("missing environment variable")
	// ErrMissingField marks a required config field that is absent or empty.
	ErrMissingField = errors.New("missing required field")
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Search     SearchConfig     `yaml:"search"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	APIKey            string  `yaml:"-" env:"YOUTUBE_API_KEY"`
	Endpoint          string  `yaml:"endpoint"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type SearchConfig struct {
	KeywordsFile  string `yaml:"keywords_file" env:"KEYWORDS_FILE"`
	MaxResults    int64  `yaml:"max_results"`
	WindowEndTime string `yaml:"window_end_time"`

	// Populated from the keywords file.
	Keywords      []string `yaml:"-"`
	StartDatetime string   `yaml:"-"`
}

type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" env:"SPREADSHEET_ID"`
	CredentialsJSON string `yaml:"-" env:"GCP_SERVICE_ACCOUNT_KEY"`
	Endpoint        string `yaml:"endpoint"`
	Rows            int64  `yaml:"rows"`
	Cols            int64  `yaml:"cols"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

// KeywordFile is the JSON document listing what to search for.
type KeywordFile struct {
	Keywords      []string `json:"keywords"`
	StartDatetime string   `json:"start_datetime"`
}

// Load reads .env, the optional settings file named by CONFIG_FILE and the
// keywords file, resolving secrets from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv(EnvConfigFile)
	if configFile == "" {
		configFile = "config.yaml"
	}
	return LoadWith(configFile, os.Getenv)
}

// LoadWith is Load with explicit inputs. A missing settings file is not an
// error; every other problem is.
func LoadWith(configFile string, getenv func(string) string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.YouTube.APIKey = getenv(EnvYouTubeAPIKey)
	cfg.Sheets.CredentialsJSON = getenv(EnvServiceAccount)
	if v := getenv(EnvSpreadsheetID); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := getenv(EnvKeywordsFile); v != "" {
		cfg.Search.KeywordsFile = v
	}

	cfg.applyDefaults()

	if err := cfg.validateEnv(); err != nil {
		return nil, err
	}

	kw, err := LoadKeywordFile(cfg.Search.KeywordsFile)
	if err != nil {
		return nil, err
	}
	cfg.Search.Keywords = kw.Keywords
	cfg.Search.StartDatetime = kw.StartDatetime

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadKeywordFile reads and checks the keywords JSON document.
func LoadKeywordFile(path string) (*KeywordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file %s: %w", path, err)
	}

	var kw KeywordFile
	if err := json.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file %s: %w", path, err)
	}

	if len(kw.Keywords) == 0 {
		return nil, fmt.Errorf("%w: keywords (in %s)", ErrMissingField, path)
	}
	for i, k := range kw.Keywords {
		if k == "" {
			return nil, fmt.Errorf("%w: keywords[%d] is empty (in %s)", ErrMissingField, i, path)
		}
	}
	if kw.StartDatetime == "" {
		return nil, fmt.Errorf("%w: start_datetime (in %s)", ErrMissingField, path)
	}
	if _, err := jst.ParseLocal(kw.StartDatetime); err != nil {
		return nil, fmt.Errorf("bad start_datetime in %s: %w", path, err)
	}

	return &kw, nil
}

func (c *Config) applyDefaults() {
	if c.Search.KeywordsFile == "" {
		c.Search.KeywordsFile = "keywords.json"
	}
	if c.Search.MaxResults <= 0 || c.Search.MaxResults > 100 {
		c.Search.MaxResults = 100
	}
	if c.Search.WindowEndTime == "" {
		c.Search.WindowEndTime = "10:01:00"
	}
	if c.Sheets.Rows <= 0 {
		c.Sheets.Rows = 100
	}
	if c.Sheets.Cols <= 0 {
		c.Sheets.Cols = 20
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 5 10 * * *" // Daily at 10:05 JST, just after the window closes
	}
}

// validateEnv runs before any file I/O on the keywords file so a missing
// secret is reported as such.
func (c *Config) validateEnv() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("%w: %s must hold the YouTube Data API key", ErrMissingEnv, EnvYouTubeAPIKey)
	}
	if c.Sheets.CredentialsJSON == "" {
		return fmt.Errorf("%w: %s must hold the service account JSON", ErrMissingEnv, EnvServiceAccount)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet ID (set %s or sheets.spreadsheet_id)", ErrMissingField, EnvSpreadsheetID)
	}
	if c.YouTube.RequestsPerSecond < 0 {
		return fmt.Errorf("youtube.requests_per_second must not be negative")
	}
	if _, err := jst.WindowEndFor("20000101", c.Search.WindowEndTime); err != nil {
		return fmt.Errorf("search.window_end_time: %w", err)
	}
	return nil
}
