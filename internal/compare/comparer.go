// Package compare runs the projection pipeline across scenarios and years.
package compare

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/climate"
	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/observability"
	"github.com/opensource-finance/baobab/internal/rules"
	"github.com/opensource-finance/baobab/internal/vulnerability"
	"github.com/opensource-finance/baobab/internal/yield"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("baobab-compare")

// Comparer evaluates every (scenario, year) cell of a comparison request.
type Comparer struct {
	projector   *climate.Projector
	model       *yield.Model
	classifier  *vulnerability.Classifier
	recommender *rules.Engine
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger

	workers  int
	baseline string
}

// Options configures a Comparer.
type Options struct {
	Workers          int
	BaselineScenario string
	Clock            clockwork.Clock
	Metrics          *observability.Metrics // optional
	Logger           *slog.Logger           // optional
}

// NewComparer wires the pipeline stages over one catalog.
func NewComparer(c *catalog.Catalog, projector *climate.Projector, recommender *rules.Engine, opts Options) *Comparer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Comparer{
		projector:   projector,
		model:       yield.NewModel(c, opts.Clock),
		classifier:  vulnerability.NewClassifier(c),
		recommender: recommender,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		workers:     opts.Workers,
		baseline:    opts.BaselineScenario,
	}
}

// Baseline returns the reference scenario for relative deltas.
func (c *Comparer) Baseline() string {
	return c.baseline
}

// Compare evaluates the request and returns one cell per (scenario, year),
// scenario-major in request order. Failures are recorded on the cell they
// occur in; only a malformed request or a cancelled context fails the call.
func (c *Comparer) Compare(ctx context.Context, req domain.ComparisonRequest) (*domain.ComparisonResult, error) {
	req = req.Normalized()
	if len(req.ScenarioIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one scenario is required", domain.ErrInvalidRequest)
	}
	if len(req.Years) == 0 {
		return nil, fmt.Errorf("%w: at least one year is required", domain.ErrInvalidRequest)
	}

	ctx, span := tracer.Start(ctx, "Compare",
		trace.WithAttributes(
			attribute.String("region", req.RegionID),
			attribute.String("crop", req.CropID),
			attribute.Int("scenarios", len(req.ScenarioIDs)),
			attribute.Int("years", len(req.Years)),
		),
	)
	defer span.End()

	start := c.clock.Now()
	result := &domain.ComparisonResult{
		ID:          uuid.New().String(),
		RegionID:    req.RegionID,
		CropID:      req.CropID,
		ScenarioIDs: req.ScenarioIDs,
		Years:       req.Years,
		Cells:       make([]domain.Cell, len(req.ScenarioIDs)*len(req.Years)),
		CreatedAt:   start.UTC(),
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for si, scenarioID := range req.ScenarioIDs {
		for yi, year := range req.Years {
			idx := si*len(req.Years) + yi
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				result.Cells[idx] = c.evaluate(scenarioID, req.RegionID, req.CropID, year)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.applyBaseline(result)

	elapsed := c.clock.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	span.SetAttributes(attribute.Int("failed_cells", result.Failed()))
	c.metrics.ObserveComparison(result, elapsed.Seconds())

	c.logger.Debug("comparison complete",
		"comparison_id", result.ID,
		"region", result.RegionID,
		"crop", result.CropID,
		"cells", len(result.Cells),
		"failed", result.Failed(),
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// evaluate runs one cell through projection, yield, classification and
// recommendation.
func (c *Comparer) evaluate(scenarioID, regionID, cropID string, year int) domain.Cell {
	cell := domain.Cell{ScenarioID: scenarioID, Year: year}

	projection, err := c.projector.Project(scenarioID, regionID, year)
	if err != nil {
		return failed(cell, err)
	}
	impact, err := c.model.EstimateImpact(projection, cropID)
	if err != nil {
		return failed(cell, err)
	}
	rating, err := c.classifier.Classify(impact, regionID)
	if err != nil {
		return failed(cell, err)
	}
	recs, err := c.recommender.Recommend(scenarioID, rating.Tier, cropID)
	if err != nil {
		return failed(cell, err)
	}

	cell.Status = domain.CellOK
	cell.Outcome = &domain.CellOutcome{
		Projection:      *projection,
		Impact:          *impact,
		Rating:          *rating,
		Recommendations: recs,
	}
	return cell
}

func failed(cell domain.Cell, err error) domain.Cell {
	cell.Status = domain.CellFailed
	cell.Failure = &domain.CellFailure{Kind: domain.KindOf(err), Message: err.Error()}
	return cell
}

// applyBaseline sets each successful non-baseline cell's delta against the
// baseline cell of the same year, when that cell succeeded.
func (c *Comparer) applyBaseline(result *domain.ComparisonResult) {
	if c.baseline == "" {
		return
	}
	for _, year := range result.Years {
		base, ok := result.Cell(c.baseline, year)
		if !ok || !base.OK() {
			continue
		}
		baseYield := base.Outcome.Impact.YieldChangePct
		for i := range result.Cells {
			cell := &result.Cells[i]
			if cell.Year != year || cell.ScenarioID == c.baseline || !cell.OK() {
				continue
			}
			delta := cell.Outcome.Impact.YieldChangePct - baseYield
			cell.Outcome.DeltaVsBaselinePct = &delta
		}
	}
}

