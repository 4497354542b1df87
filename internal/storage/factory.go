package storage

import (
	"fmt"

	"github.com/RoadSpeedAdjuster/extension/internal/config"
	"github.com/RoadSpeedAdjuster/extension/internal/database"
	gormstorage "github.com/RoadSpeedAdjuster/extension/internal/storage/gorm"
	"github.com/RoadSpeedAdjuster/extension/internal/storage/jsonfile"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "json":
		return jsonfile.New(jsonfile.Config{Dir: cfg.Dir, Compress: cfg.Compress}), nil
	case "sqlite", "postgres":
		m := database.NewManager(log)
		if err := m.Connect(cfg); err != nil {
			return nil, err
		}
		b, err := gormstorage.New(m.DB)
		if err != nil {
			m.Close()
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
