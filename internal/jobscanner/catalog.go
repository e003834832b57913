package jobscanner

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/spanisami/internal/types"
)

//go:embed catalog.yaml
var catalogYAML []byte

// City is a quick-jump centre with its select-box code.
type City struct {
	Code             string `json:"code" yaml:"code"`
	types.CityCenter `yaml:",inline"`
}

// Catalog is the immutable set of job pins and city centres.
type Catalog struct {
	DefaultCity     string             `yaml:"default_city"`
	DefaultRadiusKm float64            `yaml:"default_radius_km"`
	Cities          []City             `yaml:"cities"`
	Jobs            []types.JobListing `yaml:"jobs"`
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog, parsed once.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(catalogYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// ParseCatalog decodes and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse job catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Cities) == 0 {
		return fmt.Errorf("job catalog: no cities")
	}
	if _, ok := c.City(c.DefaultCity); !ok {
		return fmt.Errorf("job catalog: default city %q not defined", c.DefaultCity)
	}
	if c.DefaultRadiusKm <= 0 {
		return fmt.Errorf("job catalog: default radius must be positive")
	}
	seen := make(map[int]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		if seen[j.ID] {
			return fmt.Errorf("job catalog: duplicate job id %d", j.ID)
		}
		seen[j.ID] = true
	}
	return nil
}

// City looks up a city centre by code.
func (c *Catalog) City(code string) (City, bool) {
	for _, city := range c.Cities {
		if city.Code == code {
			return city, true
		}
	}
	return City{}, false
}

// Job looks up a listing by id.
func (c *Catalog) Job(id int) (types.JobListing, bool) {
	for _, j := range c.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return types.JobListing{}, false
}

// DefaultCenter returns the default city's position.
func (c *Catalog) DefaultCenter() types.LatLng {
	city, _ := c.City(c.DefaultCity)
	return city.Position()
}
