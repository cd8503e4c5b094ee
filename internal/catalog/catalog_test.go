package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/baobab/internal/domain"
)

const minimalCatalog = `
scenarios:
  - id: S1
    label: Low
    forcing: 2.6
    precipitation_per_degree: 2.0
    warming_curve:
      - {year: 2020, anomaly_c: 0.0}
      - {year: 2100, anomaly_c: 1.0}
regions:
  - id: R1
    name: Region One
    mean_temperature_c: 25
    mean_precipitation_mm: 800
    aridity: arid
    crops: [c1]
    soil_sensitivity: 1
    water_sensitivity: 1
crops:
  - id: c1
    name: Crop One
    temperature_sensitivity: 1
    precipitation_sensitivity: 0.1
    optimal_temperature: {min: 10, max: 30}
    optimal_precipitation: {min: 300, max: 900}
recommendations:
  - id: r1
    action: Do something
    priority: 1
    tiers: [High, Severe]
`

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("built-in catalog failed to load: %v", err)
	}

	wantScenarios := []string{"SSP1-2.6", "SSP2-4.5", "SSP3-7.0", "SSP5-8.5"}
	got := c.ListScenarios()
	if len(got) != len(wantScenarios) {
		t.Fatalf("expected %d scenarios, got %d", len(wantScenarios), len(got))
	}
	for i, s := range got {
		if s.ID != wantScenarios[i] {
			t.Errorf("scenario %d: expected %s, got %s", i, wantScenarios[i], s.ID)
		}
	}

	if len(c.ListRegions()) != 4 {
		t.Errorf("expected 4 regions, got %d", len(c.ListRegions()))
	}
	if len(c.ListCrops()) != 8 {
		t.Errorf("expected 8 crops, got %d", len(c.ListCrops()))
	}
	if len(c.InvestmentPriorities()) == 0 {
		t.Error("expected investment priorities")
	}

	// Every region's crops must resolve.
	for _, r := range c.ListRegions() {
		for _, id := range r.Crops {
			if _, err := c.GetCrop(id); err != nil {
				t.Errorf("region %s: crop %s: %v", r.ID, id, err)
			}
		}
	}
}

func TestListOrderStable(t *testing.T) {
	c := MustDefault()
	first := c.ListScenarios()
	for i := 0; i < 20; i++ {
		again := c.ListScenarios()
		for j := range first {
			if first[j].ID != again[j].ID {
				t.Fatalf("scenario order changed on call %d", i)
			}
		}
	}
}

func TestGetNotFound(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		name string
		get  func() error
		kind string
	}{
		{"Scenario", func() error { _, err := c.GetScenario("SSP9-9.9"); return err }, "scenario"},
		{"Region", func() error { _, err := c.GetRegion("Atlantis"); return err }, "region"},
		{"Crop", func() error { _, err := c.GetCrop("quinoa"); return err }, "crop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.get()
			if !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			var nf *domain.NotFoundError
			if !errors.As(err, &nf) || nf.Kind != tt.kind {
				t.Errorf("expected NotFoundError of kind %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestGetScenario(t *testing.T) {
	c := MustDefault()
	s, err := c.GetScenario("SSP5-8.5")
	if err != nil {
		t.Fatalf("GetScenario failed: %v", err)
	}
	if s.Forcing != 8.5 {
		t.Errorf("expected forcing 8.5, got %v", s.Forcing)
	}
	if s.FirstYear() != 2020 || s.LastYear() != 2100 {
		t.Errorf("expected curve 2020-2100, got %d-%d", s.FirstYear(), s.LastYear())
	}
}

func TestParseMinimal(t *testing.T) {
	c, err := Parse([]byte(minimalCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	recs := c.Recommendations()
	if len(recs) != 1 || len(recs[0].Tiers) != 2 || recs[0].Tiers[0] != domain.TierHigh {
		t.Errorf("unexpected recommendations %+v", recs)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantSub string
	}{
		{
			name:    "UnknownField",
			mutate:  func(s string) string { return strings.Replace(s, "label: Low", "label: Low\n    colour: red", 1) },
			wantSub: "colour",
		},
		{
			name: "DecreasingCurve",
			mutate: func(s string) string {
				return strings.Replace(s, "{year: 2100, anomaly_c: 1.0}", "{year: 2010, anomaly_c: 1.0}", 1)
			},
			wantSub: "strictly increasing",
		},
		{
			name:    "UnknownRegionCrop",
			mutate:  func(s string) string { return strings.Replace(s, "crops: [c1]", "crops: [c1, c2]", 1) },
			wantSub: "c2",
		},
		{
			name:    "UnknownTier",
			mutate:  func(s string) string { return strings.Replace(s, "[High, Severe]", "[Extreme]", 1) },
			wantSub: "tier",
		},
		{
			name:    "BadAridity",
			mutate:  func(s string) string { return strings.Replace(s, "aridity: arid", "aridity: soggy", 1) },
			wantSub: "aridity",
		},
		{
			name: "DuplicateScenario",
			mutate: func(s string) string {
				dup := "  - id: S1\n    label: Again\n    forcing: 3\n    warming_curve:\n      - {year: 2020, anomaly_c: 0}\n      - {year: 2050, anomaly_c: 1}\nregions:"
				return strings.Replace(s, "regions:", dup, 1)
			},
			wantSub: "duplicate scenario",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(minimalCatalog)))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantSub, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(minimalCatalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := c.GetRegion("R1"); err != nil {
		t.Errorf("expected region R1: %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCatalogIsolatedFromInput(t *testing.T) {
	c, err := Parse([]byte(minimalCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	recs := c.Recommendations()
	recs[0].Action = "mutated"
	if c.Recommendations()[0].Action == "mutated" {
		t.Error("Recommendations must return a copy")
	}
}
