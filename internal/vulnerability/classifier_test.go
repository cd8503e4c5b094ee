package vulnerability

import (
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

func impact(change, temp, precip float64) *domain.YieldImpact {
	return &domain.YieldImpact{
		ScenarioID:             "SSP2-4.5",
		Year:                   2050,
		YieldChangePct:         change,
		TemperatureEffectPct:   temp,
		PrecipitationEffectPct: precip,
	}
}

func TestClassifyMonotone(t *testing.T) {
	c := catalog.MustDefault()
	cls := NewClassifier(c)

	for _, r := range c.ListRegions() {
		t.Run(r.ID, func(t *testing.T) {
			prev := domain.TierLow
			for change := 50.0; change >= -100; change -= 0.5 {
				rating, err := cls.Classify(impact(change, 0, 0), r.ID)
				if err != nil {
					t.Fatalf("Classify failed: %v", err)
				}
				if rating.Tier < prev {
					t.Fatalf("tier dropped from %s to %s at %.1f%%", prev, rating.Tier, change)
				}
				prev = rating.Tier
			}
			if prev != domain.TierSevere {
				t.Errorf("expected total failure to be Severe, got %s", prev)
			}
		})
	}
}

func TestClassifySensitivity(t *testing.T) {
	cls := NewClassifier(catalog.MustDefault())

	// Southern Africa (s=1.3) reaches Moderate before East Africa (s=0.75).
	tests := []struct {
		region string
		change float64
		want   domain.RiskTier
	}{
		{"EastAfrica", -12, domain.TierLow},
		{"SouthernAfrica", -12, domain.TierModerate},
		{"EastAfrica", -40, domain.TierHigh},
		{"SouthernAfrica", -40, domain.TierSevere},
		{"WestAfrica", 5, domain.TierLow},
		{"WestAfrica", -100, domain.TierSevere},
	}

	for _, tt := range tests {
		rating, err := cls.Classify(impact(tt.change, tt.change, 0), tt.region)
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if rating.Tier != tt.want {
			t.Errorf("%s at %.0f%%: expected %s, got %s", tt.region, tt.change, tt.want, rating.Tier)
		}
	}
}

func TestClassifyBoundary(t *testing.T) {
	c := catalog.MustDefault()
	cls := NewClassifier(c)
	region, _ := c.GetRegion("WestAfrica")
	limit := -10 / region.Sensitivity()

	at, _ := cls.Classify(impact(limit, 0, 0), region.ID)
	if at.Tier != domain.TierModerate {
		t.Errorf("a change exactly at the limit belongs to the worse tier, got %s", at.Tier)
	}
	above, _ := cls.Classify(impact(limit+0.01, 0, 0), region.ID)
	if above.Tier != domain.TierLow {
		t.Errorf("expected Low just above the limit, got %s", above.Tier)
	}
}

func TestDrivingFactors(t *testing.T) {
	cls := NewClassifier(catalog.MustDefault())

	t.Run("HeatFirst", func(t *testing.T) {
		rating, _ := cls.Classify(impact(-15, -12, -3), "WestAfrica")
		if len(rating.DrivingFactors) != 2 {
			t.Fatalf("expected 2 factors, got %v", rating.DrivingFactors)
		}
		if !strings.HasPrefix(rating.DrivingFactors[0], "heat stress") {
			t.Errorf("expected heat stress first, got %v", rating.DrivingFactors)
		}
	})

	t.Run("RainfallFirst", func(t *testing.T) {
		rating, _ := cls.Classify(impact(-15, -4, -11), "WestAfrica")
		if !strings.HasPrefix(rating.DrivingFactors[0], "rainfall decline") {
			t.Errorf("expected rainfall decline first, got %v", rating.DrivingFactors)
		}
	})

	t.Run("SensitiveRegion", func(t *testing.T) {
		rating, _ := cls.Classify(impact(-15, -15, 0), "SouthernAfrica")
		last := rating.DrivingFactors[len(rating.DrivingFactors)-1]
		if !strings.HasPrefix(last, "high regional sensitivity") {
			t.Errorf("expected sensitivity factor, got %v", rating.DrivingFactors)
		}
	})

	t.Run("NoSignal", func(t *testing.T) {
		rating, _ := cls.Classify(impact(0, 0, 0), "EastAfrica")
		if len(rating.DrivingFactors) != 1 || rating.DrivingFactors[0] != "no significant climate signal" {
			t.Errorf("unexpected factors %v", rating.DrivingFactors)
		}
	})
}

func TestClassifyUnknownRegion(t *testing.T) {
	cls := NewClassifier(catalog.MustDefault())
	_, err := cls.Classify(impact(-5, -5, 0), "Atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
