package repository

// Schema definitions for the Baobab database.
// Compatible with both SQLite and PostgreSQL.

// schemaComparisons holds one row per comparison run. The full result is
// kept as JSON; the remaining columns serve listing and filtering.
const schemaComparisons = `
CREATE TABLE IF NOT EXISTS comparisons (
    id TEXT PRIMARY KEY,
    region_id TEXT NOT NULL,
    crop_id TEXT NOT NULL,
    scenarios TEXT NOT NULL,
    years TEXT NOT NULL,
    cell_count INTEGER NOT NULL,
    failed_cells INTEGER NOT NULL,
    max_tier INTEGER,
    duration_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comparisons_region ON comparisons(region_id, crop_id);
CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at);
`

// schemaComparisonCells flattens each run into its (scenario, year) cells.
const schemaComparisonCells = `
CREATE TABLE IF NOT EXISTS comparison_cells (
    comparison_id TEXT NOT NULL,
    scenario_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    status TEXT NOT NULL,
    tier_rank INTEGER,
    yield_change_pct REAL,
    failure_kind TEXT,
    PRIMARY KEY (comparison_id, scenario_id, year)
);

CREATE INDEX IF NOT EXISTS idx_comparison_cells_tier ON comparison_cells(scenario_id, tier_rank);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaComparisons,
		schemaComparisonCells,
	}
}
