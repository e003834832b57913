package types

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// JobListing is one static job pin on the scanner map.
type JobListing struct {
	ID           int      `json:"id" yaml:"id"`
	City         string   `json:"city" yaml:"city"`
	Title        string   `json:"title" yaml:"title"`
	Company      string   `json:"company" yaml:"company"`
	Lat          float64  `json:"lat" yaml:"lat"`
	Lng          float64  `json:"lng" yaml:"lng"`
	Description  string   `json:"description" yaml:"description"`
	Requirements []string `json:"requirements" yaml:"requirements"`
}

// Position returns the listing's coordinate.
func (j JobListing) Position() LatLng {
	return LatLng{Lat: j.Lat, Lng: j.Lng}
}

// CityCenter is a quick-jump centre for a major city.
type CityCenter struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
}

// Position returns the centre's coordinate.
func (c CityCenter) Position() LatLng {
	return LatLng{Lat: c.Lat, Lng: c.Lng}
}
