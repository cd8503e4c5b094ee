// Package yield estimates crop yield change from a climate projection.
package yield

import (
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

// Confidence band parameters, in yield percentage points.
const (
	BaseHalfWidth     = 2.0
	HalfWidthPerDeg   = 1.5
	HalfWidthPerYear  = 0.08
	lossSaturationPct = -domain.MinYieldChangePct
	gainSaturationPct = domain.MaxYieldChangePct
)

// TechBaseYear is the year the technology trend compounds from.
const TechBaseYear = 2020

// Model computes yield impacts. The clock fixes "the present" that
// confidence widening is measured from.
type Model struct {
	catalog *catalog.Catalog
	clock   clockwork.Clock
}

// NewModel creates a yield model. A nil clock uses real time.
func NewModel(c *catalog.Catalog, clock clockwork.Clock) *Model {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Model{catalog: c, clock: clock}
}

// EstimateImpact estimates the yield change for cropID under projection.
//
// Temperature and precipitation effects are each weighted by the crop's
// sensitivity and summed, then passed through a saturating response so
// losses approach total failure (-100%) and gains approach +50% without
// crossing either bound.
func (m *Model) EstimateImpact(projection *domain.ClimateProjection, cropID string) (*domain.YieldImpact, error) {
	crop, err := m.catalog.GetCrop(cropID)
	if err != nil {
		return nil, err
	}
	region, err := m.catalog.GetRegion(projection.RegionID)
	if err != nil {
		return nil, err
	}
	if !region.Grows(crop.ID) {
		return nil, &domain.RangeError{
			Field:  "crop",
			Value:  crop.ID,
			Reason: "not grown in " + region.Name,
		}
	}
	if !finite(projection.TemperatureAnomalyC, projection.PrecipitationChangePct,
		projection.ProjectedTemperatureC, projection.ProjectedPrecipitationMM) {
		return nil, &domain.RangeError{Field: "projection", Value: projection.Year, Reason: "non-finite climate values"}
	}

	// An insensitive crop multiplies out to -0; report it as 0.
	tempEffect := unsignedZero(-crop.TemperatureSensitivity * heatStress(projection, region, crop))
	precipEffect := unsignedZero(crop.PrecipitationSensitivity * rainfallSignal(projection, region, crop) * region.WaterSensitivity)

	change := Saturate(tempEffect + precipEffect)
	halfWidth := m.halfWidth(projection)

	return &domain.YieldImpact{
		RegionID:               region.ID,
		CropID:                 crop.ID,
		ScenarioID:             projection.ScenarioID,
		Year:                   projection.Year,
		YieldChangePct:         change,
		TemperatureEffectPct:   tempEffect,
		PrecipitationEffectPct: precipEffect,
		TechTrendPct:           m.techTrend(projection),
		Confidence: domain.ConfidenceBand{
			Lower:     clamp(change - halfWidth),
			Upper:     clamp(change + halfWidth),
			HalfWidth: halfWidth,
		},
	}, nil
}

// techTrend is the compounded yield gain from technology between
// TechBaseYear and the projection year, in percent. It is reported beside
// the climate-attributable change and never folded into it.
func (m *Model) techTrend(p *domain.ClimateProjection) float64 {
	s, err := m.catalog.GetScenario(p.ScenarioID)
	if err != nil || s.TechGrowth == 0 {
		return 0
	}
	return (math.Pow(1+s.TechGrowth, float64(p.Year-TechBaseYear)) - 1) * 100
}

func unsignedZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// heatStress is the warming in °C plus any exceedance of the crop's optimal
// maximum that the warming newly introduces.
func heatStress(p *domain.ClimateProjection, r *domain.Region, c *domain.Crop) float64 {
	optMax := c.OptimalTemperature.Max
	before := math.Max(0, r.MeanTemperatureC-optMax)
	after := math.Max(0, p.ProjectedTemperatureC-optMax)
	return p.TemperatureAnomalyC + (after - before)
}

// rainfallSignal is the precipitation change in percent, less any shortfall
// below the crop's optimal minimum that the change newly introduces.
func rainfallSignal(p *domain.ClimateProjection, r *domain.Region, c *domain.Crop) float64 {
	optMin := c.OptimalPrecipitation.Min
	if optMin <= 0 {
		return p.PrecipitationChangePct
	}
	before := math.Max(0, optMin-r.MeanPrecipitationMM) / optMin * 100
	after := math.Max(0, optMin-p.ProjectedPrecipitationMM) / optMin * 100
	return p.PrecipitationChangePct - (after - before)
}

// Saturate maps an additive yield signal onto [-100, 50] with diminishing
// returns in both directions. Saturate(0) is 0 and the curve is monotone.
func Saturate(raw float64) float64 {
	if raw == 0 || math.IsNaN(raw) {
		return 0
	}
	var v float64
	if raw < 0 {
		v = -lossSaturationPct * math.Tanh(-raw/lossSaturationPct)
	} else {
		v = gainSaturationPct * math.Tanh(raw/gainSaturationPct)
	}
	return clamp(v)
}

func (m *Model) halfWidth(p *domain.ClimateProjection) float64 {
	present := m.clock.Now().Year()
	distance := math.Abs(float64(p.Year - present))
	return BaseHalfWidth + HalfWidthPerDeg*math.Abs(p.TemperatureAnomalyC) + HalfWidthPerYear*distance
}

func clamp(v float64) float64 {
	return math.Max(domain.MinYieldChangePct, math.Min(domain.MaxYieldChangePct, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
