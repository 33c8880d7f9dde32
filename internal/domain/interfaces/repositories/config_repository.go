// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/appguard/internal/domain/entities"
)

// ConfigRepository defines the interface for loading engine configuration
type ConfigRepository interface {
	// LoadConfig returns the configuration, falling back to defaults when no file exists
	LoadConfig(ctx context.Context) (*entities.GuardConfig, error)
}
