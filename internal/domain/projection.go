package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Yield change bounds in percent.
const (
	MinYieldChangePct = -100.0
	MaxYieldChangePct = 50.0
)

// ClimateProjection is the projected climate shift for a scenario, region and year.
type ClimateProjection struct {
	ScenarioID               string  `json:"scenarioId"`
	RegionID                 string  `json:"regionId"`
	Year                     int     `json:"year"`
	TemperatureAnomalyC      float64 `json:"temperatureAnomalyC"`
	PrecipitationChangePct   float64 `json:"precipitationChangePct"`
	ProjectedTemperatureC    float64 `json:"projectedTemperatureC"`
	ProjectedPrecipitationMM float64 `json:"projectedPrecipitationMm"`
}

// ConfidenceBand bounds a yield estimate.
type ConfidenceBand struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	HalfWidth float64 `json:"halfWidth"`
}

// YieldImpact is the estimated yield change for a crop under a projection.
type YieldImpact struct {
	RegionID               string         `json:"regionId"`
	CropID                 string         `json:"cropId"`
	ScenarioID             string         `json:"scenarioId"`
	Year                   int            `json:"year"`
	YieldChangePct         float64        `json:"yieldChangePct"`
	TemperatureEffectPct   float64        `json:"temperatureEffectPct"`
	PrecipitationEffectPct float64        `json:"precipitationEffectPct"`
	// TechTrendPct is the scenario's technology-driven yield gain since
	// 2020. It is not part of YieldChangePct.
	TechTrendPct           float64        `json:"techTrendPct"`
	Confidence             ConfidenceBand `json:"confidence"`
}

// RiskTier is an ordered vulnerability classification.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierHigh
	TierSevere
)

var tierNames = [...]string{"Low", "Moderate", "High", "Severe"}

// AllTiers returns the tiers in ascending order of severity.
func AllTiers() []RiskTier {
	return []RiskTier{TierLow, TierModerate, TierHigh, TierSevere}
}

func (t RiskTier) String() string {
	if t < TierLow || t > TierSevere {
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the four tiers.
func (t RiskTier) Valid() bool {
	return t >= TierLow && t <= TierSevere
}

// ParseRiskTier parses a tier name, case-insensitively.
func ParseRiskTier(s string) (RiskTier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return RiskTier(i), nil
		}
	}
	return 0, &RangeError{Field: "tier", Value: s, Reason: "must be one of Low, Moderate, High, Severe"}
}

// MarshalText encodes the tier by name, which also covers JSON map keys.
func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid risk tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *RiskTier) UnmarshalText(b []byte) error {
	parsed, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the tier as its name.
func (t RiskTier) MarshalJSON() ([]byte, error) {
	text, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON decodes a tier name.
func (t *RiskTier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// VulnerabilityRating is the risk tier of a region under a scenario and year.
type VulnerabilityRating struct {
	RegionID       string   `json:"regionId"`
	ScenarioID     string   `json:"scenarioId"`
	Year           int      `json:"year"`
	Tier           RiskTier `json:"tier"`
	DrivingFactors []string `json:"drivingFactors"`
}
