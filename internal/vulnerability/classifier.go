// Package vulnerability assigns risk tiers to yield impacts.
package vulnerability

import (
	"fmt"
	"math"

	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/domain"
)

// Band maps yield changes above LowerLimit to Tier. Bands are checked in
// order, so they must be sorted from mildest to most severe.
type Band struct {
	LowerLimit float64
	Tier       domain.RiskTier
}

// DefaultBands are the thresholds for a region of average sensitivity.
func DefaultBands() []Band {
	return []Band{
		{LowerLimit: -10, Tier: domain.TierLow},
		{LowerLimit: -25, Tier: domain.TierModerate},
		{LowerLimit: -45, Tier: domain.TierHigh},
		{LowerLimit: math.Inf(-1), Tier: domain.TierSevere},
	}
}

// Classifier maps yield impacts to risk tiers.
type Classifier struct {
	catalog *catalog.Catalog
	bands   []Band
}

// NewClassifier creates a classifier with the default bands.
func NewClassifier(c *catalog.Catalog) *Classifier {
	return &Classifier{catalog: c, bands: DefaultBands()}
}

// Classify assigns a tier to impact in regionID. Band limits are divided by
// the region's sensitivity factor, so a region more sensitive than average
// reaches each tier at a milder yield loss.
func (c *Classifier) Classify(impact *domain.YieldImpact, regionID string) (*domain.VulnerabilityRating, error) {
	region, err := c.catalog.GetRegion(regionID)
	if err != nil {
		return nil, err
	}

	sensitivity := region.Sensitivity()
	tier := matchBand(impact.YieldChangePct, sensitivity, c.bands)

	return &domain.VulnerabilityRating{
		RegionID:       region.ID,
		ScenarioID:     impact.ScenarioID,
		Year:           impact.Year,
		Tier:           tier,
		DrivingFactors: drivingFactors(impact, sensitivity),
	}, nil
}

// matchBand returns the first band whose scaled lower limit lies strictly
// below change. Falls through to the last band's tier.
func matchBand(change, sensitivity float64, bands []Band) domain.RiskTier {
	for _, b := range bands {
		if change > b.LowerLimit/sensitivity {
			return b.Tier
		}
	}
	return bands[len(bands)-1].Tier
}

func drivingFactors(impact *domain.YieldImpact, sensitivity float64) []string {
	var factors []string

	temp := impact.TemperatureEffectPct
	precip := impact.PrecipitationEffectPct
	if temp < 0 {
		factors = append(factors, fmt.Sprintf("heat stress (%.1f%% yield)", temp))
	}
	if precip < 0 {
		factors = append(factors, fmt.Sprintf("rainfall decline (%.1f%% yield)", precip))
	} else if precip > 0 {
		factors = append(factors, fmt.Sprintf("rainfall increase (+%.1f%% yield)", precip))
	}
	if sensitivity > 1 {
		factors = append(factors, fmt.Sprintf("high regional sensitivity (x%.2f)", sensitivity))
	}
	if temp < 0 && precip < temp {
		// rainfall dominates: list it first
		factors[0], factors[1] = factors[1], factors[0]
	}
	if len(factors) == 0 {
		factors = append(factors, "no significant climate signal")
	}
	return factors
}
