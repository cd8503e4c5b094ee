// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/baobab/internal/domain"
)

var ErrInvalidInput = errors.New("invalid input")

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New opens the configured database and brings its schema up to date.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	opener, ok := openers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	db, err := opener(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

var openers = map[string]func(domain.RepositoryConfig) (*sql.DB, error){
	"sqlite":   openSQLite,
	"postgres": openPostgres,
}

// openDB opens driverName and verifies the connection before returning it.
func openDB(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveComparison stores a comparison run and its cells in one transaction.
func (r *SQLRepository) SaveComparison(ctx context.Context, result *domain.ComparisonResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: comparison ID is required", ErrInvalidInput)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode comparison: %w", err)
	}
	scenarios, _ := json.Marshal(result.ScenarioIDs)
	years, _ := json.Marshal(result.Years)

	var maxTier sql.NullInt64
	if tier, ok := result.MaxTier(); ok {
		maxTier = sql.NullInt64{Int64: int64(tier), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO comparisons (
			id, region_id, crop_id, scenarios, years,
			cell_count, failed_cells, max_tier, duration_ms, created_at, result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, r.rebind(query),
		result.ID, result.RegionID, result.CropID, string(scenarios), string(years),
		len(result.Cells), result.Failed(), maxTier, result.DurationMs, result.CreatedAt.UTC(),
		string(body),
	); err != nil {
		return err
	}

	cellQuery := r.rebind(`
		INSERT INTO comparison_cells (
			comparison_id, scenario_id, year, status, tier_rank, yield_change_pct, failure_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i := range result.Cells {
		c := &result.Cells[i]
		var tier sql.NullInt64
		var change sql.NullFloat64
		var kind sql.NullString
		if c.OK() {
			tier = sql.NullInt64{Int64: int64(c.Outcome.Rating.Tier), Valid: true}
			change = sql.NullFloat64{Float64: c.Outcome.Impact.YieldChangePct, Valid: true}
		} else if c.Failure != nil {
			kind = sql.NullString{String: c.Failure.Kind, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, cellQuery,
			result.ID, c.ScenarioID, c.Year, c.Status, tier, change, kind,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetComparison retrieves a comparison run by ID.
func (r *SQLRepository) GetComparison(ctx context.Context, id string) (*domain.ComparisonResult, error) {
	query := `SELECT result FROM comparisons WHERE id = ?`

	var body string
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "comparison", ID: id}
	}
	if err != nil {
		return nil, err
	}

	var result domain.ComparisonResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("failed to decode comparison %s: %w", id, err)
	}
	return &result, nil
}

// ListComparisons returns stored runs, newest first.
func (r *SQLRepository) ListComparisons(ctx context.Context, filter domain.ComparisonFilter) ([]*domain.ComparisonSummary, error) {
	var where []string
	var args []any

	if filter.RegionID != "" {
		where = append(where, "region_id = ?")
		args = append(args, filter.RegionID)
	}
	if filter.CropID != "" {
		where = append(where, "crop_id = ?")
		args = append(args, filter.CropID)
	}
	if filter.ScenarioID != "" {
		where = append(where, "id IN (SELECT comparison_id FROM comparison_cells WHERE scenario_id = ?)")
		args = append(args, filter.ScenarioID)
	}
	if filter.MinTier != nil {
		where = append(where, "max_tier >= ?")
		args = append(args, int(*filter.MinTier))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, region_id, crop_id, scenarios, years,
			   cell_count, failed_cells, max_tier, created_at
		FROM comparisons
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []*domain.ComparisonSummary{}
	for rows.Next() {
		var s domain.ComparisonSummary
		var scenarios, years string
		var maxTier sql.NullInt64

		if err := rows.Scan(
			&s.ID, &s.RegionID, &s.CropID, &scenarios, &years,
			&s.CellCount, &s.FailedCells, &maxTier, &s.CreatedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(scenarios), &s.ScenarioIDs); err != nil {
			return nil, fmt.Errorf("failed to parse scenarios for %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(years), &s.Years); err != nil {
			return nil, fmt.Errorf("failed to parse years for %s: %w", s.ID, err)
		}
		if maxTier.Valid {
			tier := domain.RiskTier(maxTier.Int64)
			s.MaxTier = &tier
		}
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
