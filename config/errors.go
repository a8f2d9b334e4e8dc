package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidBackend indicates store.backend is not a known backend.
	ErrInvalidBackend = errors.New("config: invalid store backend")

	// ErrMissingStorePath indicates a persistent backend has no path.
	ErrMissingStorePath = errors.New("config: store path is required")

	// ErrInvalidTimeout indicates a negative duration.
	ErrInvalidTimeout = errors.New("config: timeout must not be negative")

	// ErrMissingEnv indicates ${VAR} referenced an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrNotFound indicates no configuration file exists in the searched locations.
	ErrNotFound = errors.New("config: no configuration file found")
)
