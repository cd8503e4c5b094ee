package catalog

import (
	"errors"
	"fmt"
	"math"
)

func validate(d Data) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...)))
	}

	if len(d.Scenarios) == 0 {
		fail("no scenarios")
	}
	if len(d.Regions) == 0 {
		fail("no regions")
	}
	if len(d.Crops) == 0 {
		fail("no crops")
	}

	scenarioIDs := make(map[string]bool)
	for _, s := range d.Scenarios {
		if s.ID == "" {
			fail("scenario with empty id")
			continue
		}
		if scenarioIDs[s.ID] {
			fail("duplicate scenario %q", s.ID)
		}
		scenarioIDs[s.ID] = true

		if !finite(s.Forcing, s.PrecipitationPerDegree, s.TechGrowth) {
			fail("scenario %q: non-finite parameter", s.ID)
		}
		if s.Forcing <= 0 {
			fail("scenario %q: forcing must be positive", s.ID)
		}
		if len(s.WarmingCurve) < 2 {
			fail("scenario %q: warming curve needs at least 2 points", s.ID)
		}
		for i, p := range s.WarmingCurve {
			if !finite(p.AnomalyC) {
				fail("scenario %q: non-finite anomaly at %d", s.ID, p.Year)
			}
			if i > 0 && p.Year <= s.WarmingCurve[i-1].Year {
				fail("scenario %q: warming curve years must be strictly increasing (%d after %d)",
					s.ID, p.Year, s.WarmingCurve[i-1].Year)
			}
		}
	}

	cropIDs := make(map[string]bool)
	for _, c := range d.Crops {
		if c.ID == "" {
			fail("crop with empty id")
			continue
		}
		if cropIDs[c.ID] {
			fail("duplicate crop %q", c.ID)
		}
		cropIDs[c.ID] = true

		if !finite(c.TemperatureSensitivity, c.PrecipitationSensitivity,
			c.OptimalTemperature.Min, c.OptimalTemperature.Max,
			c.OptimalPrecipitation.Min, c.OptimalPrecipitation.Max) {
			fail("crop %q: non-finite parameter", c.ID)
		}
		if c.TemperatureSensitivity < 0 || c.PrecipitationSensitivity < 0 {
			fail("crop %q: sensitivities must not be negative", c.ID)
		}
		if c.OptimalTemperature.Min > c.OptimalTemperature.Max {
			fail("crop %q: optimal temperature range is inverted", c.ID)
		}
		if c.OptimalPrecipitation.Min > c.OptimalPrecipitation.Max || c.OptimalPrecipitation.Min < 0 {
			fail("crop %q: invalid optimal precipitation range", c.ID)
		}
	}

	regionIDs := make(map[string]bool)
	for _, r := range d.Regions {
		if r.ID == "" {
			fail("region with empty id")
			continue
		}
		if regionIDs[r.ID] {
			fail("duplicate region %q", r.ID)
		}
		regionIDs[r.ID] = true

		if !finite(r.MeanTemperatureC, r.MeanPrecipitationMM, r.SoilSensitivity, r.WaterSensitivity) {
			fail("region %q: non-finite parameter", r.ID)
		}
		if r.MeanPrecipitationMM <= 0 {
			fail("region %q: mean precipitation must be positive", r.ID)
		}
		if r.SoilSensitivity <= 0 || r.WaterSensitivity <= 0 {
			fail("region %q: sensitivity coefficients must be positive", r.ID)
		}
		if !r.Aridity.Valid() {
			fail("region %q: unknown aridity %q", r.ID, r.Aridity)
		}
		if len(r.Crops) == 0 {
			fail("region %q: empty crop mix", r.ID)
		}
		for _, c := range r.Crops {
			if !cropIDs[c] {
				fail("region %q: unknown crop %q", r.ID, c)
			}
		}
	}

	recIDs := make(map[string]bool)
	for _, rec := range d.Recommendations {
		if rec.ID == "" || rec.Action == "" {
			fail("recommendation needs id and action")
			continue
		}
		if recIDs[rec.ID] {
			fail("duplicate recommendation %q", rec.ID)
		}
		recIDs[rec.ID] = true

		if rec.Priority < 1 {
			fail("recommendation %q: priority must be >= 1", rec.ID)
		}
		for _, t := range rec.Tiers {
			if !t.Valid() {
				fail("recommendation %q: invalid tier %d", rec.ID, int(t))
			}
		}
		if rec.MaxForcing != 0 && rec.MaxForcing < rec.MinForcing {
			fail("recommendation %q: forcing window is inverted", rec.ID)
		}
		for _, c := range rec.Crops {
			if !cropIDs[c] {
				fail("recommendation %q: unknown crop %q", rec.ID, c)
			}
		}
	}

	return errors.Join(errs...)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
