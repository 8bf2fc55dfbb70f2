package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	applog "releve/internal/log"
	"releve/internal/search"
	"releve/internal/statement"
)

type Config struct {
	// HTTP Server
	Port               string        `koanf:"PORT"`
	CORSAllowedOrigins string        `koanf:"CORS_ALLOWED_ORIGINS"`
	CacheTTL           time.Duration `koanf:"CACHE_TTL"`
	LoadTimeout        time.Duration `koanf:"LOAD_TIMEOUT"`

	// Backend selection
	DataBackend  string `koanf:"DATA_BACKEND"`
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`
	PostgresURL  string `koanf:"POSTGRES_URL"`
	DataDir      string `koanf:"DATA_DIR"`

	// AMQP, optional: tagging runs inline when AMQPURL is empty
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Statement import
	StatementsDir    string `koanf:"STATEMENTS_DIR"`
	StatementCharset string `koanf:"STATEMENT_CHARSET"`

	// Google Sheets statement source
	GoogleSpreadsheetID      string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetRange         string `koanf:"GOOGLE_SHEET_RANGE"`
	GoogleServiceAccountFile string `koanf:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `koanf:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Search and worker behaviour
	UntaggedMatch string        `koanf:"UNTAGGED_MATCH"`
	RetagInterval time.Duration `koanf:"RETAG_INTERVAL"`

	LogLevel string `koanf:"LOG_LEVEL"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "8081",
		CacheTTL:         30 * time.Second,
		LoadTimeout:      7 * time.Second,
		DataBackend:      "sqlite",
		SQLiteDBPath:     "./data/releve.db",
		DataDir:          "data",
		AMQPExchange:     "releve",
		AMQPQueue:        "statement_imported",
		StatementsDir:    "./statements",
		StatementCharset: statement.CharsetUTF8,
		UntaggedMatch:    string(search.SentinelPrefix),
		RetagInterval:    15 * time.Minute,
		LogLevel:         "info",
	}
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads the environment on top of Defaults. Empty variables keep the
// default.
func Load() (*Config, error) {
	k := koanf.New(".")
	provider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SheetRanges splits GOOGLE_SHEET_RANGE on commas.
func (c *Config) SheetRanges() []string {
	return splitList(c.GoogleSheetRange)
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas. Empty allows every origin.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SheetsConfigured reports whether a Sheets statement source can be built.
func (c *Config) SheetsConfigured() bool {
	return c.GoogleSpreadsheetID != "" && c.GoogleSheetRange != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid POSTGRES_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid POSTGRES_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory postgres sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !statement.ValidCharset(c.StatementCharset) {
		errors = append(errors, fmt.Sprintf("unsupported statement charset '%s': must be utf-8 or windows-1252", c.StatementCharset))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetRange == "" {
		errors = append(errors, "GOOGLE_SHEET_RANGE is required when GOOGLE_SPREADSHEET_ID is set")
	}

	if _, err := search.ParseSentinelPolicy(c.UntaggedMatch); err != nil {
		errors = append(errors, fmt.Sprintf("invalid UNTAGGED_MATCH: %v", err))
	}
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}
	if c.LoadTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must not be negative", c.LoadTimeout))
	}
	if c.RetagInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid retag interval %v: must be at least 1 second", c.RetagInterval))
	} else if c.RetagInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid retag interval %v: must be at most 24 hours", c.RetagInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
