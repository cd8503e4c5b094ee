// Package domain defines the core types and interfaces for Baobab.
package domain

import (
	"context"
	"time"
)

// Repository persists comparison runs.
type Repository interface {
	// Comparison runs
	SaveComparison(ctx context.Context, result *ComparisonResult) error
	GetComparison(ctx context.Context, id string) (*ComparisonResult, error)
	ListComparisons(ctx context.Context, filter ComparisonFilter) ([]*ComparisonSummary, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ComparisonFilter narrows ListComparisons. Zero values match everything.
type ComparisonFilter struct {
	RegionID   string
	CropID     string
	ScenarioID string    // runs that compared this scenario
	MinTier    *RiskTier // runs with at least one cell at or above this tier
	Limit      int
}

// ComparisonSummary is the listing view of a stored comparison.
type ComparisonSummary struct {
	ID          string    `json:"id"`
	RegionID    string    `json:"region"`
	CropID      string    `json:"crop"`
	ScenarioIDs []string  `json:"scenarios"`
	Years       []int     `json:"years"`
	CellCount   int       `json:"cellCount"`
	FailedCells int       `json:"failedCells"`
	MaxTier     *RiskTier `json:"maxTier,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
