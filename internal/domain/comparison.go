package domain

import (
	"strconv"
	"time"
)

// ComparisonRequest selects the scenarios and years to compare for one region and crop.
type ComparisonRequest struct {
	ScenarioIDs []string `json:"scenarios"`
	RegionID    string   `json:"region"`
	CropID      string   `json:"crop"`
	Years       []int    `json:"years"`
}

// Normalized returns a copy with duplicate scenarios and years removed,
// keeping the first occurrence of each.
func (r ComparisonRequest) Normalized() ComparisonRequest {
	out := ComparisonRequest{RegionID: r.RegionID, CropID: r.CropID}

	seenScenario := make(map[string]bool, len(r.ScenarioIDs))
	for _, id := range r.ScenarioIDs {
		if seenScenario[id] {
			continue
		}
		seenScenario[id] = true
		out.ScenarioIDs = append(out.ScenarioIDs, id)
	}

	seenYear := make(map[int]bool, len(r.Years))
	for _, y := range r.Years {
		if seenYear[y] {
			continue
		}
		seenYear[y] = true
		out.Years = append(out.Years, y)
	}
	return out
}

// CacheKey identifies the request for result caching.
func (r ComparisonRequest) CacheKey() string {
	n := r.Normalized()
	key := "cmp:" + n.RegionID + ":" + n.CropID + ":"
	for i, id := range n.ScenarioIDs {
		if i > 0 {
			key += ","
		}
		key += id
	}
	key += ":"
	for i, y := range n.Years {
		if i > 0 {
			key += ","
		}
		key += strconv.Itoa(y)
	}
	return key
}

// Cell status values.
const (
	CellOK     = "ok"
	CellFailed = "failed"
)

// CellOutcome is the full pipeline output for one (scenario, year) pair.
type CellOutcome struct {
	Projection      ClimateProjection   `json:"projection"`
	Impact          YieldImpact         `json:"impact"`
	Rating          VulnerabilityRating `json:"rating"`
	Recommendations []Recommendation    `json:"recommendations"`

	// DeltaVsBaselinePct is the yield change relative to the baseline
	// scenario for the same year, when the baseline was compared too.
	DeltaVsBaselinePct *float64 `json:"deltaVsBaselinePct,omitempty"`
}

// CellFailure describes why a cell could not be computed.
type CellFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Cell is one entry of a comparison table.
type Cell struct {
	ScenarioID string       `json:"scenarioId"`
	Year       int          `json:"year"`
	Status     string       `json:"status"`
	Outcome    *CellOutcome `json:"outcome,omitempty"`
	Failure    *CellFailure `json:"failure,omitempty"`
}

// OK reports whether the cell succeeded.
func (c *Cell) OK() bool {
	return c.Status == CellOK
}

// ComparisonResult is a table of cells keyed by (scenario, year).
type ComparisonResult struct {
	ID          string    `json:"id"`
	RegionID    string    `json:"region"`
	CropID      string    `json:"crop"`
	ScenarioIDs []string  `json:"scenarios"`
	Years       []int     `json:"years"`
	Cells       []Cell    `json:"cells"`
	CreatedAt   time.Time `json:"createdAt"`
	DurationMs  int64     `json:"durationMs"`
}

// Cell returns the cell for (scenarioID, year).
func (r *ComparisonResult) Cell(scenarioID string, year int) (*Cell, bool) {
	for i := range r.Cells {
		if r.Cells[i].ScenarioID == scenarioID && r.Cells[i].Year == year {
			return &r.Cells[i], true
		}
	}
	return nil, false
}

// Failed returns the number of failed cells.
func (r *ComparisonResult) Failed() int {
	n := 0
	for i := range r.Cells {
		if !r.Cells[i].OK() {
			n++
		}
	}
	return n
}

// MaxTier returns the most severe tier among successful cells.
func (r *ComparisonResult) MaxTier() (RiskTier, bool) {
	var max RiskTier
	found := false
	for i := range r.Cells {
		c := &r.Cells[i]
		if !c.OK() {
			continue
		}
		if !found || c.Outcome.Rating.Tier > max {
			max = c.Outcome.Rating.Tier
			found = true
		}
	}
	return max, found
}
