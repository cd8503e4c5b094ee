// Package climate projects temperature and precipitation shifts for a
// scenario, region and year from the scenario's warming curve.
package climate

import (
	"fmt"
	"math"

	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

// Projector turns a scenario warming curve into regional climate projections.
type Projector struct {
	catalog      *catalog.Catalog
	horizonStart int
	horizonEnd   int
}

// NewProjector creates a projector over the given catalog and inclusive year horizon.
func NewProjector(c *catalog.Catalog, horizonStart, horizonEnd int) *Projector {
	return &Projector{
		catalog:      c,
		horizonStart: horizonStart,
		horizonEnd:   horizonEnd,
	}
}

// Horizon returns the supported year range.
func (p *Projector) Horizon() (start, end int) {
	return p.horizonStart, p.horizonEnd
}

// Project computes the climate projection for scenarioID and regionID in year.
//
// The temperature anomaly is linearly interpolated between the two curve
// points bracketing year. Years beyond either end of the curve are rejected
// rather than extrapolated. Precipitation change scales with the anomaly by
// the scenario's per-degree rate, drying arid regions and wetting humid ones.
func (p *Projector) Project(scenarioID, regionID string, year int) (*domain.ClimateProjection, error) {
	scenario, err := p.catalog.GetScenario(scenarioID)
	if err != nil {
		return nil, err
	}
	region, err := p.catalog.GetRegion(regionID)
	if err != nil {
		return nil, err
	}

	if year < p.horizonStart || year > p.horizonEnd {
		return nil, &domain.RangeError{
			Field:  "year",
			Value:  year,
			Reason: fmt.Sprintf("supported horizon is %d-%d", p.horizonStart, p.horizonEnd),
		}
	}

	anomaly, err := Interpolate(scenario.WarmingCurve, year)
	if err != nil {
		return nil, err
	}

	precipPct := region.Aridity.PrecipitationSign() * scenario.PrecipitationPerDegree * anomaly
	precipMM := math.Max(0, region.MeanPrecipitationMM*(1+precipPct/100))

	return &domain.ClimateProjection{
		ScenarioID:               scenario.ID,
		RegionID:                 region.ID,
		Year:                     year,
		TemperatureAnomalyC:      anomaly,
		PrecipitationChangePct:   precipPct,
		ProjectedTemperatureC:    region.MeanTemperatureC + anomaly,
		ProjectedPrecipitationMM: precipMM,
	}, nil
}

// Interpolate returns the curve value at year. The curve must be sorted by
// strictly increasing year; years outside it are a RangeError.
func Interpolate(curve []domain.WarmingPoint, year int) (float64, error) {
	if len(curve) == 0 {
		return 0, &domain.RangeError{Field: "year", Value: year, Reason: "empty warming curve"}
	}
	first, last := curve[0], curve[len(curve)-1]
	if year < first.Year || year > last.Year {
		return 0, &domain.RangeError{
			Field:  "year",
			Value:  year,
			Reason: fmt.Sprintf("warming curve covers %d-%d", first.Year, last.Year),
		}
	}

	for i := 1; i < len(curve); i++ {
		lo, hi := curve[i-1], curve[i]
		if year > hi.Year {
			continue
		}
		if year == hi.Year {
			return hi.AnomalyC, nil
		}
		frac := float64(year-lo.Year) / float64(hi.Year-lo.Year)
		return lo.AnomalyC + frac*(hi.AnomalyC-lo.AnomalyC), nil
	}
	// year == first.Year with a single matching point
	return first.AnomalyC, nil
}
