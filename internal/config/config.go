// Package config loads the process-wide settings from flags and
// environment variables (spec.md §6, "CLI / env"): the Quickwit ingest
// URL, the listen address, the JWT signing key, the locations file
// path, and the optional object-storage credentials that uploads
// degrades on if absent.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/eratosthenes/geoguess-server/internal/logging"
)

// Config holds every externally supplied setting the serve command
// needs to construct the server.
type Config struct {
	ListenAddress  string
	JWTSigningKey  string
	LocationsPath  string
	QuickwitURL    string
	AllowedOrigins []string

	ObjectStorageEndpoint  string
	ObjectStorageBucket    string
	ObjectStorageAccessKey string
	ObjectStorageSecretKey string
}

// ObjectStorageConfigured reports whether enough object-storage
// credentials were supplied to attempt wiring a real upload backend.
// Uploads degrades to log-warn-and-disable when this is false, per
// spec.md §6.
func (c Config) ObjectStorageConfigured() bool {
	return c.ObjectStorageEndpoint != "" && c.ObjectStorageBucket != ""
}

// Flags bundles the cobra flag values the serve command reads; Load
// resolves them against the environment, with flags taking priority.
type Flags struct {
	QuickwitURL    string
	ListenAddress  string
	JWTSigningKey  string
	LocationsPath  string
	AllowedOrigins []string
}

// Load reads a .env file if present (warning, not failing, if it's
// missing - matching the teacher's serve command), then resolves the
// final Config from flags and environment variables.
func Load(flags Flags) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Warn("config: no .env file found, relying on process environment", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cfg := Config{
		ListenAddress:          firstNonEmpty(flags.ListenAddress, os.Getenv("LISTEN_ADDRESS"), ":8080"),
		JWTSigningKey:          firstNonEmpty(flags.JWTSigningKey, os.Getenv("JWT_SIGNING_KEY")),
		LocationsPath:          firstNonEmpty(flags.LocationsPath, os.Getenv("LOCATIONS_PATH")),
		QuickwitURL:            firstNonEmpty(flags.QuickwitURL, os.Getenv("QUICKWIT_URL")),
		AllowedOrigins:         flags.AllowedOrigins,
		ObjectStorageEndpoint:  os.Getenv("OBJECT_STORAGE_ENDPOINT"),
		ObjectStorageBucket:    os.Getenv("OBJECT_STORAGE_BUCKET"),
		ObjectStorageAccessKey: os.Getenv("OBJECT_STORAGE_ACCESS_KEY"),
		ObjectStorageSecretKey: os.Getenv("OBJECT_STORAGE_SECRET_KEY"),
	}

	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("config: --jwt-signing-key (or JWT_SIGNING_KEY) is required")
	}
	if cfg.LocationsPath == "" {
		return Config{}, fmt.Errorf("config: --locations (or LOCATIONS_PATH) is required")
	}
	if !cfg.ObjectStorageConfigured() {
		logging.Warn("config: object-storage credentials not set, uploads will be disabled", nil)
	}
	if cfg.QuickwitURL == "" {
		logging.Warn("config: --quickwit-url not set, telemetry is disabled", nil)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
