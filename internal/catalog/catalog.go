// Package catalog holds the immutable scenario, region, crop and
// recommendation reference data the projection pipeline reads from.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/opensource-finance/baobab/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is a validated, read-only set of reference records.
// Records returned by its accessors are shared and must not be modified.
type Catalog struct {
	scenarios       []*domain.Scenario
	regions         []*domain.Region
	crops           []*domain.Crop
	recommendations []domain.Recommendation
	priorities      []string

	scenarioByID map[string]*domain.Scenario
	regionByID   map[string]*domain.Region
	cropByID     map[string]*domain.Crop
}

// Data is the serialized form of a catalog.
type Data struct {
	Scenarios            []domain.Scenario       `yaml:"scenarios"`
	Regions              []domain.Region         `yaml:"regions"`
	Crops                []domain.Crop           `yaml:"crops"`
	Recommendations      []domain.Recommendation `yaml:"recommendations"`
	InvestmentPriorities []string                `yaml:"investment_priorities"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var d Data
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(d)
}

// New validates d and builds a catalog from it.
func New(d Data) (*Catalog, error) {
	if err := validate(d); err != nil {
		return nil, err
	}

	c := &Catalog{
		scenarioByID: make(map[string]*domain.Scenario, len(d.Scenarios)),
		regionByID:   make(map[string]*domain.Region, len(d.Regions)),
		cropByID:     make(map[string]*domain.Crop, len(d.Crops)),
		priorities:   append([]string(nil), d.InvestmentPriorities...),
	}
	for i := range d.Scenarios {
		s := d.Scenarios[i]
		s.WarmingCurve = append([]domain.WarmingPoint(nil), s.WarmingCurve...)
		c.scenarios = append(c.scenarios, &s)
		c.scenarioByID[s.ID] = &s
	}
	for i := range d.Regions {
		r := d.Regions[i]
		r.Crops = append([]string(nil), r.Crops...)
		c.regions = append(c.regions, &r)
		c.regionByID[r.ID] = &r
	}
	for i := range d.Crops {
		cr := d.Crops[i]
		c.crops = append(c.crops, &cr)
		c.cropByID[cr.ID] = &cr
	}
	c.recommendations = append([]domain.Recommendation(nil), d.Recommendations...)
	return c, nil
}

// ListScenarios returns all scenarios in catalog order.
func (c *Catalog) ListScenarios() []*domain.Scenario {
	return append([]*domain.Scenario(nil), c.scenarios...)
}

// GetScenario returns the scenario with the given ID.
func (c *Catalog) GetScenario(id string) (*domain.Scenario, error) {
	s, ok := c.scenarioByID[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "scenario", ID: id}
	}
	return s, nil
}

// ListRegions returns all regions in catalog order.
func (c *Catalog) ListRegions() []*domain.Region {
	return append([]*domain.Region(nil), c.regions...)
}

// GetRegion returns the region with the given ID.
func (c *Catalog) GetRegion(id string) (*domain.Region, error) {
	r, ok := c.regionByID[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "region", ID: id}
	}
	return r, nil
}

// ListCrops returns all crops in catalog order.
func (c *Catalog) ListCrops() []*domain.Crop {
	return append([]*domain.Crop(nil), c.crops...)
}

// GetCrop returns the crop with the given ID.
func (c *Catalog) GetCrop(id string) (*domain.Crop, error) {
	cr, ok := c.cropByID[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "crop", ID: id}
	}
	return cr, nil
}

// Recommendations returns the recommendation records in catalog order.
func (c *Catalog) Recommendations() []domain.Recommendation {
	return append([]domain.Recommendation(nil), c.recommendations...)
}

// InvestmentPriorities returns the cross-scenario investment areas.
func (c *Catalog) InvestmentPriorities() []string {
	return append([]string(nil), c.priorities...)
}

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")
