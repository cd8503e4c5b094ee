// Package rules provides the CEL-Go based adaptation recommendation engine.
package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

// Engine selects and orders adaptation recommendations.
// All expressions are compiled once at construction; the engine is read-only afterwards.
type Engine struct {
	env      *cel.Env
	catalog  *catalog.Catalog
	compiled []*CompiledRecommendation
}

// CompiledRecommendation holds a recommendation and its pre-compiled condition.
type CompiledRecommendation struct {
	Config  domain.Recommendation
	Order   int
	Program cel.Program // nil when the recommendation has no condition
}

// NewEngine compiles every recommendation in the catalog.
func NewEngine(c *catalog.Catalog) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("scenario", cel.StringType),
		cel.Variable("forcing", cel.DoubleType),
		cel.Variable("tech_growth", cel.DoubleType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("tier_rank", cel.IntType),
		cel.Variable("crop", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env, catalog: c}
	for i, rec := range c.Recommendations() {
		compiled, err := e.compile(rec)
		if err != nil {
			return nil, err
		}
		compiled.Order = i
		e.compiled = append(e.compiled, compiled)
	}
	return e, nil
}

// ValidateExpression compiles a condition without loading it.
func (e *Engine) ValidateExpression(expr string) error {
	_, err := e.compile(domain.Recommendation{ID: "validate", When: expr})
	return err
}

// Count returns the number of loaded recommendations.
func (e *Engine) Count() int {
	return len(e.compiled)
}

// Recommend returns the recommendations applicable to tier under scenarioID
// for cropID, most urgent first.
//
// A recommendation applies when its tier list includes tier (or is empty),
// the scenario forcing lies in its window, its crop list includes cropID (or
// is empty) and its condition, if any, evaluates to true. Results are
// ordered by priority; within a priority crop-specific actions come first,
// then catalog order.
func (e *Engine) Recommend(scenarioID string, tier domain.RiskTier, cropID string) ([]domain.Recommendation, error) {
	scenario, err := e.catalog.GetScenario(scenarioID)
	if err != nil {
		return nil, err
	}
	if _, err := e.catalog.GetCrop(cropID); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, &domain.RangeError{Field: "tier", Value: int(tier), Reason: "unknown risk tier"}
	}

	activation := map[string]any{
		"scenario":    scenario.ID,
		"forcing":     scenario.Forcing,
		"tech_growth": scenario.TechGrowth,
		"tier":        tier.String(),
		"tier_rank":   int64(tier),
		"crop":        cropID,
	}

	matched := make([]*CompiledRecommendation, 0, len(e.compiled))
	for _, rec := range e.compiled {
		if !applies(rec.Config, scenario.Forcing, tier, cropID) {
			continue
		}
		if rec.Program != nil && !e.evaluate(rec, activation) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Config.Priority != b.Config.Priority {
			return a.Config.Priority < b.Config.Priority
		}
		aSpecific, bSpecific := len(a.Config.Crops) > 0, len(b.Config.Crops) > 0
		if aSpecific != bSpecific {
			return aSpecific
		}
		return a.Order < b.Order
	})

	out := make([]domain.Recommendation, len(matched))
	for i, rec := range matched {
		out[i] = rec.Config
		out[i].Rank = i + 1
	}
	return out, nil
}

func applies(rec domain.Recommendation, forcing float64, tier domain.RiskTier, cropID string) bool {
	if len(rec.Tiers) > 0 && !containsTier(rec.Tiers, tier) {
		return false
	}
	if forcing < rec.MinForcing {
		return false
	}
	if rec.MaxForcing != 0 && forcing > rec.MaxForcing {
		return false
	}
	if len(rec.Crops) > 0 && !containsString(rec.Crops, cropID) {
		return false
	}
	return true
}

// evaluate runs a recommendation condition. Evaluation errors exclude the
// recommendation.
func (e *Engine) evaluate(rec *CompiledRecommendation, activation map[string]any) bool {
	out, _, err := rec.Program.Eval(activation)
	if err != nil {
		slog.Warn("recommendation condition failed",
			"recommendation_id", rec.Config.ID,
			"error", err,
		)
		return false
	}
	b, ok := out.(types.Bool)
	return ok && bool(b)
}

func (e *Engine) compile(rec domain.Recommendation) (*CompiledRecommendation, error) {
	compiled := &CompiledRecommendation{Config: rec}
	if rec.When == "" {
		return compiled, nil
	}

	ast, issues := e.env.Compile(rec.When)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile recommendation %s: %w", rec.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("recommendation %s: condition must return bool, got %s", rec.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for recommendation %s: %w", rec.ID, err)
	}
	compiled.Program = program
	return compiled, nil
}

func containsTier(tiers []domain.RiskTier, t domain.RiskTier) bool {
	for _, x := range tiers {
		if x == t {
			return true
		}
	}
	return false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
