package domain

// Scenario is a Shared Socioeconomic Pathway with its warming trajectory.
type Scenario struct {
	ID          string  `json:"id" yaml:"id"`
	Label       string  `json:"label" yaml:"label"`
	Description string  `json:"description" yaml:"description"`
	Color       string  `json:"color,omitempty" yaml:"color"`
	Forcing     float64 `json:"forcing" yaml:"forcing"` // W/m² by 2100

	// WarmingCurve is ordered by year, strictly increasing.
	WarmingCurve []WarmingPoint `json:"warmingCurve" yaml:"warming_curve"`

	// PrecipitationPerDegree is the precipitation change (%) per °C of warming.
	// The sign is applied per region from its aridity class.
	PrecipitationPerDegree float64 `json:"precipitationPerDegree" yaml:"precipitation_per_degree"`

	// TechGrowth is the assumed annual yield gain from technology (fraction).
	TechGrowth float64 `json:"techGrowth" yaml:"tech_growth"`

	// Implications lists the agricultural narrative of the pathway.
	Implications []string `json:"implications,omitempty" yaml:"implications"`
}

// WarmingPoint is a single (year, anomaly) sample of a warming curve.
type WarmingPoint struct {
	Year     int     `json:"year" yaml:"year"`
	AnomalyC float64 `json:"anomalyC" yaml:"anomaly_c"`
}

// FirstYear returns the first year covered by the warming curve.
func (s *Scenario) FirstYear() int {
	if len(s.WarmingCurve) == 0 {
		return 0
	}
	return s.WarmingCurve[0].Year
}

// LastYear returns the last year covered by the warming curve.
func (s *Scenario) LastYear() int {
	if len(s.WarmingCurve) == 0 {
		return 0
	}
	return s.WarmingCurve[len(s.WarmingCurve)-1].Year
}

// Aridity classifies a region's precipitation response to warming.
type Aridity string

const (
	AridityArid     Aridity = "arid"
	AriditySemiArid Aridity = "semi_arid"
	AridityHumid    Aridity = "humid"
)

// PrecipitationSign is -1 for regions that dry under warming, +1 for regions that wet.
func (a Aridity) PrecipitationSign() float64 {
	if a == AridityHumid {
		return 1
	}
	return -1
}

// Valid reports whether a is a known aridity class.
func (a Aridity) Valid() bool {
	switch a {
	case AridityArid, AriditySemiArid, AridityHumid:
		return true
	}
	return false
}

// Region is reference data for an African agro-climatic region.
type Region struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name" yaml:"name"`
	MeanTemperatureC    float64  `json:"meanTemperatureC" yaml:"mean_temperature_c"`
	MeanPrecipitationMM float64  `json:"meanPrecipitationMm" yaml:"mean_precipitation_mm"`
	Aridity             Aridity  `json:"aridity" yaml:"aridity"`
	Crops               []string `json:"crops" yaml:"crops"`

	// Sensitivity coefficients, 1.0 is the continental average.
	SoilSensitivity  float64 `json:"soilSensitivity" yaml:"soil_sensitivity"`
	WaterSensitivity float64 `json:"waterSensitivity" yaml:"water_sensitivity"`
}

// Grows reports whether cropID is part of the region's crop mix.
func (r *Region) Grows(cropID string) bool {
	for _, c := range r.Crops {
		if c == cropID {
			return true
		}
	}
	return false
}

// Sensitivity is the combined soil/water sensitivity factor.
func (r *Region) Sensitivity() float64 {
	return (r.SoilSensitivity + r.WaterSensitivity) / 2
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Crop is reference data for a crop's climate response.
type Crop struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// TemperatureSensitivity is the yield loss (%) per °C of heat stress.
	TemperatureSensitivity float64 `json:"temperatureSensitivity" yaml:"temperature_sensitivity"`

	// PrecipitationSensitivity is the yield change (%) per % change in rainfall.
	PrecipitationSensitivity float64 `json:"precipitationSensitivity" yaml:"precipitation_sensitivity"`

	OptimalTemperature   Range `json:"optimalTemperature" yaml:"optimal_temperature"`
	OptimalPrecipitation Range `json:"optimalPrecipitation" yaml:"optimal_precipitation"`
}

// Recommendation is an adaptation action and the conditions it applies under.
type Recommendation struct {
	ID       string `json:"id" yaml:"id"`
	Action   string `json:"action" yaml:"action"`
	Priority int    `json:"priority" yaml:"priority"` // 1 is most urgent

	// Tiers the action applies to. Empty means every tier.
	Tiers []RiskTier `json:"tiers,omitempty" yaml:"tiers"`

	// Scenario forcing window. A zero MaxForcing is unbounded.
	MinForcing float64 `json:"minForcing,omitempty" yaml:"min_forcing"`
	MaxForcing float64 `json:"maxForcing,omitempty" yaml:"max_forcing"`

	// Crops restricts the action to specific crops. Empty means any crop.
	Crops []string `json:"crops,omitempty" yaml:"crops"`

	// When is an optional CEL expression that must evaluate to true.
	When string `json:"when,omitempty" yaml:"when"`

	// Rank is the 1-based position in a recommendation list.
	Rank int `json:"rank,omitempty" yaml:"-"`
}
