package climate

import (
	"errors"
	"math"
	"testing"

	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

const epsilon = 1e-9

func TestProject(t *testing.T) {
	p := NewProjector(catalog.MustDefault(), 2020, 2100)

	t.Run("CurveEndpoint", func(t *testing.T) {
		proj, err := p.Project("SSP5-8.5", "WestAfrica", 2100)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		if math.Abs(proj.TemperatureAnomalyC-4.2) > epsilon {
			t.Errorf("expected anomaly 4.2, got %v", proj.TemperatureAnomalyC)
		}
		if math.Abs(proj.ProjectedTemperatureC-31.7) > epsilon {
			t.Errorf("expected projected temperature 31.7, got %v", proj.ProjectedTemperatureC)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, _ := p.Project("SSP3-7.0", "SouthernAfrica", 2067)
		b, _ := p.Project("SSP3-7.0", "SouthernAfrica", 2067)
		if *a != *b {
			t.Errorf("repeated projections differ: %+v vs %+v", a, b)
		}
	})

	t.Run("AridDries", func(t *testing.T) {
		proj, _ := p.Project("SSP2-4.5", "SouthernAfrica", 2080)
		if proj.PrecipitationChangePct >= 0 {
			t.Errorf("expected drying in an arid region, got %+.2f%%", proj.PrecipitationChangePct)
		}
		if proj.ProjectedPrecipitationMM >= 650 {
			t.Errorf("expected less than baseline rainfall, got %.1f mm", proj.ProjectedPrecipitationMM)
		}
	})

	t.Run("HumidWets", func(t *testing.T) {
		proj, _ := p.Project("SSP2-4.5", "EastAfrica", 2080)
		if proj.PrecipitationChangePct <= 0 {
			t.Errorf("expected wetting in a humid region, got %+.2f%%", proj.PrecipitationChangePct)
		}
	})

	t.Run("BaselineYear", func(t *testing.T) {
		proj, _ := p.Project("SSP5-8.5", "CentralAfrica", 2020)
		if proj.TemperatureAnomalyC != 0 || proj.PrecipitationChangePct != 0 {
			t.Errorf("expected no change at the baseline year, got %+v", proj)
		}
	})
}

func TestProjectMonotone(t *testing.T) {
	c := catalog.MustDefault()
	p := NewProjector(c, 2020, 2100)

	for _, s := range c.ListScenarios() {
		t.Run(s.ID, func(t *testing.T) {
			prev := math.Inf(-1)
			for year := 2020; year <= 2100; year++ {
				proj, err := p.Project(s.ID, "WestAfrica", year)
				if err != nil {
					t.Fatalf("year %d: %v", year, err)
				}
				if proj.TemperatureAnomalyC < prev-epsilon {
					t.Fatalf("anomaly decreased at %d: %v < %v", year, proj.TemperatureAnomalyC, prev)
				}
				prev = proj.TemperatureAnomalyC
			}
		})
	}
}

func TestProjectErrors(t *testing.T) {
	p := NewProjector(catalog.MustDefault(), 2020, 2100)

	tests := []struct {
		name     string
		scenario string
		region   string
		year     int
		target   error
	}{
		{"BeyondHorizon", "SSP2-4.5", "WestAfrica", 2150, domain.ErrOutOfRange},
		{"BeforeHorizon", "SSP2-4.5", "WestAfrica", 2019, domain.ErrOutOfRange},
		{"UnknownScenario", "SSP9-9.9", "WestAfrica", 2050, domain.ErrNotFound},
		{"UnknownRegion", "SSP2-4.5", "Atlantis", 2050, domain.ErrNotFound},
		{"NotFoundBeforeRange", "SSP9-9.9", "WestAfrica", 2150, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Project(tt.scenario, tt.region, tt.year)
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestProjectBeyondCurve(t *testing.T) {
	// A horizon wider than the curve still refuses to extrapolate.
	p := NewProjector(catalog.MustDefault(), 2000, 2200)

	_, err := p.Project("SSP2-4.5", "WestAfrica", 2150)
	var re *domain.RangeError
	if !errors.As(err, &re) || re.Field != "year" {
		t.Errorf("expected year RangeError, got %v", err)
	}
}

func TestInterpolate(t *testing.T) {
	curve := []domain.WarmingPoint{
		{Year: 2020, AnomalyC: 0},
		{Year: 2040, AnomalyC: 1.0},
		{Year: 2100, AnomalyC: 4.0},
	}

	tests := []struct {
		year    int
		want    float64
		wantErr bool
	}{
		{2020, 0, false},
		{2030, 0.5, false},
		{2040, 1.0, false},
		{2070, 2.5, false},
		{2100, 4.0, false},
		{2019, 0, true},
		{2101, 0, true},
	}

	for _, tt := range tests {
		got, err := Interpolate(curve, tt.year)
		if (err != nil) != tt.wantErr {
			t.Errorf("Interpolate(%d) error = %v, wantErr %v", tt.year, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > epsilon {
			t.Errorf("Interpolate(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}

	if _, err := Interpolate(nil, 2050); !errors.Is(err, domain.ErrOutOfRange) {
		t.Errorf("expected range error for empty curve, got %v", err)
	}
}
