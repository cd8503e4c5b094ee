package yield

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/climate"
	"github.com/opensource-finance/baobab/internal/domain"
)

var present = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// Two crops with identical optima; "inert" has no climate sensitivity.
const fixtureCatalog = `
scenarios:
  - id: HOT
    label: Hot
    forcing: 8.5
    precipitation_per_degree: 3.0
    tech_growth: 0.01
    warming_curve:
      - {year: 2020, anomaly_c: 0.0}
      - {year: 2100, anomaly_c: 4.0}
  - id: FLAT
    label: Flat
    forcing: 2.6
    precipitation_per_degree: 3.0
    warming_curve:
      - {year: 2020, anomaly_c: 0.0}
      - {year: 2100, anomaly_c: 0.0}
regions:
  - id: DRY
    name: Dry Plains
    mean_temperature_c: 28
    mean_precipitation_mm: 600
    aridity: arid
    crops: [inert, staple]
    soil_sensitivity: 1
    water_sensitivity: 1
crops:
  - id: inert
    name: Inert
    temperature_sensitivity: 0
    precipitation_sensitivity: 0
    optimal_temperature: {min: 15, max: 30}
    optimal_precipitation: {min: 400, max: 900}
  - id: staple
    name: Staple
    temperature_sensitivity: 8
    precipitation_sensitivity: 0.4
    optimal_temperature: {min: 15, max: 30}
    optimal_precipitation: {min: 400, max: 900}
  - id: orphan
    name: Not grown
    temperature_sensitivity: 1
    precipitation_sensitivity: 0.1
    optimal_temperature: {min: 15, max: 30}
    optimal_precipitation: {min: 400, max: 900}
`

func fixture(t *testing.T) (*Model, *climate.Projector) {
	t.Helper()
	c, err := catalog.Parse([]byte(fixtureCatalog))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return NewModel(c, clockwork.NewFakeClockAt(present)), climate.NewProjector(c, 2020, 2100)
}

func TestEstimateImpact(t *testing.T) {
	model, proj := fixture(t)

	t.Run("ZeroSensitivity", func(t *testing.T) {
		for _, year := range []int{2030, 2060, 2100} {
			p, err := proj.Project("HOT", "DRY", year)
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}
			impact, err := model.EstimateImpact(p, "inert")
			if err != nil {
				t.Fatalf("EstimateImpact failed: %v", err)
			}
			if impact.YieldChangePct != 0 || math.Signbit(impact.YieldChangePct) {
				t.Errorf("%d: expected +0 change for insensitive crop, got %v", year, impact.YieldChangePct)
			}
			if math.Signbit(impact.TemperatureEffectPct) || math.Signbit(impact.PrecipitationEffectPct) {
				t.Errorf("%d: expected unsigned zero effects, got %+v", year, impact)
			}
			data, _ := json.Marshal(impact)
			if !strings.Contains(string(data), `"yieldChangePct":0,`) {
				t.Errorf("%d: negative zero leaked into JSON: %s", year, data)
			}
		}
	})

	t.Run("TechTrendSeparate", func(t *testing.T) {
		p, _ := proj.Project("HOT", "DRY", 2030)
		impact, err := model.EstimateImpact(p, "inert")
		if err != nil {
			t.Fatalf("EstimateImpact failed: %v", err)
		}
		want := (math.Pow(1.01, 10) - 1) * 100
		if math.Abs(impact.TechTrendPct-want) > 1e-9 {
			t.Errorf("expected tech trend %.4f, got %.4f", want, impact.TechTrendPct)
		}
		if impact.YieldChangePct != 0 {
			t.Errorf("tech trend must not enter the climate change, got %v", impact.YieldChangePct)
		}

		flat, _ := proj.Project("FLAT", "DRY", 2030)
		none, _ := model.EstimateImpact(flat, "inert")
		if none.TechTrendPct != 0 {
			t.Errorf("expected no trend without tech growth, got %v", none.TechTrendPct)
		}
	})

	t.Run("LossGrowsWithWarming", func(t *testing.T) {
		prev := 1.0
		for year := 2030; year <= 2100; year += 10 {
			p, _ := proj.Project("HOT", "DRY", year)
			impact, err := model.EstimateImpact(p, "staple")
			if err != nil {
				t.Fatalf("EstimateImpact failed: %v", err)
			}
			if impact.YieldChangePct >= prev {
				t.Errorf("%d: expected loss to deepen, got %.2f after %.2f", year, impact.YieldChangePct, prev)
			}
			if impact.TemperatureEffectPct >= 0 || impact.PrecipitationEffectPct >= 0 {
				t.Errorf("%d: expected both effects negative in a drying hot region, got %+v", year, impact)
			}
			prev = impact.YieldChangePct
		}
	})

	t.Run("ConfidenceContainsEstimate", func(t *testing.T) {
		p, _ := proj.Project("HOT", "DRY", 2080)
		impact, _ := model.EstimateImpact(p, "staple")
		ci := impact.Confidence
		if ci.Lower > impact.YieldChangePct || ci.Upper < impact.YieldChangePct {
			t.Errorf("estimate %.2f outside band [%.2f, %.2f]", impact.YieldChangePct, ci.Lower, ci.Upper)
		}
		if ci.Lower < domain.MinYieldChangePct || ci.Upper > domain.MaxYieldChangePct {
			t.Errorf("band [%.2f, %.2f] escapes yield bounds", ci.Lower, ci.Upper)
		}
	})

	t.Run("BandWidensWithDistance", func(t *testing.T) {
		near, _ := proj.Project("HOT", "DRY", 2030)
		far, _ := proj.Project("HOT", "DRY", 2090)
		a, _ := model.EstimateImpact(near, "inert")
		b, _ := model.EstimateImpact(far, "inert")
		if b.Confidence.HalfWidth <= a.Confidence.HalfWidth {
			t.Errorf("expected wider band further out: %.2f vs %.2f", b.Confidence.HalfWidth, a.Confidence.HalfWidth)
		}
		// 2030 is five years from the fixed present with a 0.5 degree anomaly.
		want := BaseHalfWidth + HalfWidthPerDeg*0.5 + HalfWidthPerYear*5
		if math.Abs(a.Confidence.HalfWidth-want) > 1e-9 {
			t.Errorf("expected half-width %.4f, got %.4f", want, a.Confidence.HalfWidth)
		}
	})

	t.Run("BandWidensWithAnomaly", func(t *testing.T) {
		base, _ := proj.Project("HOT", "DRY", 2060)
		prev := -1.0
		for _, anomaly := range []float64{0, 0.5, 1, 2, 3.5, 5} {
			p := *base
			p.TemperatureAnomalyC = anomaly
			p.ProjectedTemperatureC = 28 + anomaly
			impact, err := model.EstimateImpact(&p, "staple")
			if err != nil {
				t.Fatalf("EstimateImpact failed: %v", err)
			}
			if impact.Confidence.HalfWidth < prev {
				t.Errorf("anomaly %.1f: half-width %.4f narrower than %.4f", anomaly, impact.Confidence.HalfWidth, prev)
			}
			prev = impact.Confidence.HalfWidth
		}

		// Cooling widens the band as much as warming.
		p := *base
		p.TemperatureAnomalyC = -2
		cool, _ := model.EstimateImpact(&p, "staple")
		p.TemperatureAnomalyC = 2
		warm, _ := model.EstimateImpact(&p, "staple")
		if math.Abs(cool.Confidence.HalfWidth-warm.Confidence.HalfWidth) > 1e-9 {
			t.Errorf("expected symmetric widening, got %.4f vs %.4f", cool.Confidence.HalfWidth, warm.Confidence.HalfWidth)
		}
	})
}

func TestEstimateImpactClock(t *testing.T) {
	c, _ := catalog.Parse([]byte(fixtureCatalog))
	clock := clockwork.NewFakeClockAt(present)
	model := NewModel(c, clock)
	p, _ := climate.NewProjector(c, 2020, 2100).Project("HOT", "DRY", 2050)

	before, _ := model.EstimateImpact(p, "staple")
	clock.Advance(20 * 365 * 24 * time.Hour)
	after, _ := model.EstimateImpact(p, "staple")

	if after.Confidence.HalfWidth >= before.Confidence.HalfWidth {
		t.Errorf("expected band to narrow as the present approaches the year: %.2f -> %.2f",
			before.Confidence.HalfWidth, after.Confidence.HalfWidth)
	}
	if after.YieldChangePct != before.YieldChangePct {
		t.Error("the clock must not change the point estimate")
	}
}

func TestEstimateImpactErrors(t *testing.T) {
	model, proj := fixture(t)
	p, _ := proj.Project("HOT", "DRY", 2050)

	t.Run("UnknownCrop", func(t *testing.T) {
		_, err := model.EstimateImpact(p, "quinoa")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CropNotGrown", func(t *testing.T) {
		_, err := model.EstimateImpact(p, "orphan")
		var re *domain.RangeError
		if !errors.As(err, &re) || re.Field != "crop" {
			t.Errorf("expected crop RangeError, got %v", err)
		}
	})

	t.Run("NonFinite", func(t *testing.T) {
		bad := *p
		bad.TemperatureAnomalyC = math.NaN()
		_, err := model.EstimateImpact(&bad, "staple")
		if !errors.Is(err, domain.ErrOutOfRange) {
			t.Errorf("expected ErrOutOfRange, got %v", err)
		}
	})
}

func TestEstimateImpactExtremes(t *testing.T) {
	model, _ := fixture(t)

	tests := []struct {
		name    string
		anomaly float64
		precip  float64
	}{
		{"ScorchingDrought", 40, -100},
		{"Deluge", 0, 10000},
		{"DeepCold", -40, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.ClimateProjection{
				ScenarioID:               "HOT",
				RegionID:                 "DRY",
				Year:                     2100,
				TemperatureAnomalyC:      tt.anomaly,
				PrecipitationChangePct:   tt.precip,
				ProjectedTemperatureC:    28 + tt.anomaly,
				ProjectedPrecipitationMM: math.Max(0, 600*(1+tt.precip/100)),
			}
			impact, err := model.EstimateImpact(p, "staple")
			if err != nil {
				t.Fatalf("EstimateImpact failed: %v", err)
			}
			if impact.YieldChangePct < domain.MinYieldChangePct || impact.YieldChangePct > domain.MaxYieldChangePct {
				t.Errorf("yield change %.2f outside [-100, 50]", impact.YieldChangePct)
			}
		})
	}
}

func TestSaturate(t *testing.T) {
	if Saturate(0) != 0 {
		t.Errorf("Saturate(0) = %v", Saturate(0))
	}
	if got := Saturate(math.Copysign(0, -1)); math.Signbit(got) {
		t.Errorf("Saturate(-0) = %v, want +0", got)
	}
	if Saturate(math.NaN()) != 0 {
		t.Error("expected NaN to map to 0")
	}
	if Saturate(math.Inf(-1)) != domain.MinYieldChangePct {
		t.Errorf("Saturate(-Inf) = %v", Saturate(math.Inf(-1)))
	}
	if Saturate(math.Inf(1)) != domain.MaxYieldChangePct {
		t.Errorf("Saturate(+Inf) = %v", Saturate(math.Inf(1)))
	}

	prev := Saturate(-1000)
	for raw := -999.0; raw <= 1000; raw++ {
		v := Saturate(raw)
		if v < prev {
			t.Fatalf("Saturate not monotone at %v: %v < %v", raw, v, prev)
		}
		prev = v
	}

	// Small signals pass through almost unchanged.
	if v := Saturate(-2); math.Abs(v+2) > 0.01 {
		t.Errorf("Saturate(-2) = %v, expected close to -2", v)
	}
}
