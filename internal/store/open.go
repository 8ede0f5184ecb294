package store

import (
	"fmt"

	"github.com/syakhish/weather-monitor/internal/config"
)

// OpenBackend builds the backend selected by cfg.Backend.
func OpenBackend(cfg config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileBackend(cfg.Path)
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLitePath)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
