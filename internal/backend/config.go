package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"releve/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:          BackendType(appConfig.DataBackend),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		PostgresURL:   appConfig.PostgresURL,
		DataDirectory: appConfig.DataDir,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q (want one of %s)",
			appConfig.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}
	return cfg, nil
}

// Validate reports every setting the selected backend is missing.
func (c Config) Validate() error {
	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("SQLite database path is required for sqlite backend"))
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("Postgres URL is required for postgres backend"))
		}
	case MemoryBackend:
	default:
		errs = append(errs, fmt.Errorf("invalid backend type: %q", c.Type))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	return errors.Join(errs...)
}

// Describe names the store for logs, without credentials.
func (c Config) Describe() string {
	switch c.Type {
	case SQLiteBackend:
		return "sqlite " + c.SQLiteDBPath
	case PostgresBackend:
		if u, err := url.Parse(c.PostgresURL); err == nil {
			return "postgres " + u.Redacted()
		}
		return "postgres"
	case MemoryBackend:
		return "memory " + c.DataDirectory
	}
	return string(c.Type)
}

// GetBackendTypes returns all valid backend types, the default first.
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	names := make([]string, 0, 3)
	for _, t := range GetBackendTypes() {
		names = append(names, t.String())
	}
	return names
}
