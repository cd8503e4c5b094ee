// Package outlook condenses a comparison table into per-scenario summaries.
// It averages each scenario over a policy period and reports the worst tier
// reached anywhere in the table.
package outlook

import (
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

// Processor summarizes comparison results.
type Processor struct {
	catalog *catalog.Catalog

	// Period averaged for the mean yield change, inclusive
	PeriodStart int
	PeriodEnd   int

	// Baseline scenario the deltas are relative to
	Baseline string
}

// NewProcessor creates a processor with the given averaging period.
func NewProcessor(c *catalog.Catalog, periodStart, periodEnd int, baseline string) *Processor {
	return &Processor{
		catalog:     c,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Baseline:    baseline,
	}
}

// ScenarioSummary is the outlook for one scenario.
type ScenarioSummary struct {
	ScenarioID string `json:"scenarioId"`
	Label      string `json:"label,omitempty"`

	// WorstTier is nil when no cell of the scenario succeeded.
	WorstTier *domain.RiskTier `json:"worstTier,omitempty"`

	MeanYieldChangePct     *float64 `json:"meanYieldChangePct,omitempty"`
	MeanDeltaVsBaselinePct *float64 `json:"meanDeltaVsBaselinePct,omitempty"`
	YearsAveraged          []int    `json:"yearsAveraged"`
	FailedCells            int      `json:"failedCells"`
	Implications           []string `json:"implications,omitempty"`
}

// Outlook is the summary view of one comparison.
type Outlook struct {
	ComparisonID         string            `json:"comparisonId"`
	RegionID             string            `json:"region"`
	CropID               string            `json:"crop"`
	PeriodStart          int               `json:"periodStart"`
	PeriodEnd            int               `json:"periodEnd"`
	Baseline             string            `json:"baseline,omitempty"`
	Scenarios            []ScenarioSummary `json:"scenarios"`
	InvestmentPriorities []string          `json:"investmentPriorities"`
}

// Summarize builds the outlook for result. Scenarios keep the comparison's
// order. When none of the compared years falls inside the period, the mean
// covers every successful year instead.
func (p *Processor) Summarize(result *domain.ComparisonResult) *Outlook {
	out := &Outlook{
		ComparisonID:         result.ID,
		RegionID:             result.RegionID,
		CropID:               result.CropID,
		PeriodStart:          p.PeriodStart,
		PeriodEnd:            p.PeriodEnd,
		Baseline:             p.Baseline,
		Scenarios:            make([]ScenarioSummary, 0, len(result.ScenarioIDs)),
		InvestmentPriorities: p.catalog.InvestmentPriorities(),
	}

	usePeriod := false
	for _, y := range result.Years {
		if p.inPeriod(y) {
			usePeriod = true
			break
		}
	}

	for _, scenarioID := range result.ScenarioIDs {
		out.Scenarios = append(out.Scenarios, p.summarize(result, scenarioID, usePeriod))
	}
	return out
}

func (p *Processor) summarize(result *domain.ComparisonResult, scenarioID string, usePeriod bool) ScenarioSummary {
	s := ScenarioSummary{ScenarioID: scenarioID, YearsAveraged: []int{}}
	if scenario, err := p.catalog.GetScenario(scenarioID); err == nil {
		s.Label = scenario.Label
		s.Implications = append([]string(nil), scenario.Implications...)
	}

	var yieldSum, deltaSum float64
	var deltaCount int
	for _, year := range result.Years {
		cell, ok := result.Cell(scenarioID, year)
		if !ok {
			continue
		}
		if !cell.OK() {
			s.FailedCells++
			continue
		}

		tier := cell.Outcome.Rating.Tier
		if s.WorstTier == nil || tier > *s.WorstTier {
			s.WorstTier = &tier
		}

		if usePeriod && !p.inPeriod(year) {
			continue
		}
		s.YearsAveraged = append(s.YearsAveraged, year)
		yieldSum += cell.Outcome.Impact.YieldChangePct
		if d := cell.Outcome.DeltaVsBaselinePct; d != nil {
			deltaSum += *d
			deltaCount++
		}
	}

	if n := len(s.YearsAveraged); n > 0 {
		mean := yieldSum / float64(n)
		s.MeanYieldChangePct = &mean
	}
	if deltaCount > 0 {
		mean := deltaSum / float64(deltaCount)
		s.MeanDeltaVsBaselinePct = &mean
	}
	return s
}

func (p *Processor) inPeriod(year int) bool {
	return year >= p.PeriodStart && year <= p.PeriodEnd
}

// ShouldAlert reports whether any scenario reached the Severe tier.
func ShouldAlert(o *Outlook) bool {
	return len(SevereScenarios(o)) > 0
}

// SevereScenarios lists the scenarios whose worst tier is Severe.
func SevereScenarios(o *Outlook) []string {
	var ids []string
	for _, s := range o.Scenarios {
		if s.WorstTier != nil && *s.WorstTier == domain.TierSevere {
			ids = append(ids, s.ScenarioID)
		}
	}
	return ids
}

// NewEvent builds the bus payload announcing a finished comparison.
func NewEvent(jobID string, result *domain.ComparisonResult, o *Outlook) domain.ComparisonEvent {
	ev := domain.ComparisonEvent{
		JobID:           jobID,
		ComparisonID:    result.ID,
		RegionID:        result.RegionID,
		CropID:          result.CropID,
		CellCount:       len(result.Cells),
		FailedCells:     result.Failed(),
		SevereScenarios: SevereScenarios(o),
	}
	if tier, ok := result.MaxTier(); ok {
		ev.MaxTier = &tier
	}
	return ev
}
