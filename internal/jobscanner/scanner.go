// Package jobscanner places static job listings on a map and classifies them
// by distance from a chosen centre.
package jobscanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/jonathan/spanisami/internal/types"
)

// Zoom levels for each way of choosing a centre.
const (
	ZoomDefault  = 11
	ZoomCity     = 12
	ZoomLocation = 13
)

var (
	ErrMapUnavailable = errors.New("map provider unavailable")
	ErrNotInitialized = errors.New("job scanner not initialized")
	ErrInvalidRadius  = errors.New("radius must be positive")
	ErrUnknownJob     = errors.New("unknown job")
)

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// RoleTarget receives a job title to tailor the next CV to.
type RoleTarget interface {
	SetTargetRole(role string)
}

// Navigator switches the visible page section.
type Navigator interface {
	Show(section types.Section) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(types.Section) error

func (f NavigatorFunc) Show(s types.Section) error { return f(s) }

// Detail is the job panel shown for a selected pin.
type Detail struct {
	Job        types.JobListing `json:"job"`
	DistanceKm float64          `json:"distance_km"`
	Meta       string           `json:"meta"`
}

// Scanner is the job map controller for one UI session.
type Scanner struct {
	catalog *Catalog
	mapView MapView
	locator Geolocator
	alerts  Alerter
	roles   RoleTarget
	nav     Navigator

	mu          sync.Mutex
	initialized bool
	center      types.LatLng
	zoom        int
	radiusKm    float64
	city        string
	markers     []Marker
	selected    *Detail
}

// New creates a scanner. A nil mapView or locator is treated as unavailable.
func New(catalog *Catalog, mapView MapView, locator Geolocator, alerts Alerter, roles RoleTarget, nav Navigator) *Scanner {
	if mapView == nil {
		mapView = UnavailableMap{}
	}
	if locator == nil {
		locator = NoLocator{}
	}
	return &Scanner{
		catalog:  catalog,
		mapView:  mapView,
		locator:  locator,
		alerts:   alerts,
		roles:    roles,
		nav:      nav,
		center:   catalog.DefaultCenter(),
		zoom:     ZoomDefault,
		radiusKm: catalog.DefaultRadiusKm,
		city:     catalog.DefaultCity,
	}
}

// Initialized reports whether Init has completed.
func (s *Scanner) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Init draws the default view. It is safe to call more than once.
func (s *Scanner) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if !s.mapView.Supported() {
		log.Printf("[jobs] map provider not ready, job scanner disabled")
		return ErrMapUnavailable
	}

	s.center = s.catalog.DefaultCenter()
	s.zoom = ZoomDefault
	s.radiusKm = s.catalog.DefaultRadiusKm
	s.city = s.catalog.DefaultCity

	s.mapView.SetView(s.center, s.zoom)
	s.mapView.SetCircle(s.center, s.radiusMeters())
	s.refreshLocked(s.center)
	s.initialized = true
	return nil
}

func (s *Scanner) radiusMeters() float64 {
	return s.radiusKm * 1000
}

// SetRadiusKm changes the search radius around the current centre.
func (s *Scanner) SetRadiusKm(km float64) error {
	if km <= 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return ErrInvalidRadius
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.radiusKm = km
	s.mapView.SetCircle(s.center, s.radiusMeters())
	s.refreshLocked(s.center)
	return nil
}

// SetCenter moves the search circle, keeping the zoom.
func (s *Scanner) SetCenter(p types.LatLng) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.moveLocked(p, s.zoom)
	return nil
}

// SelectCity centres on a known city. Unknown codes are ignored.
func (s *Scanner) SelectCity(code string) error {
	city, ok := s.catalog.City(code)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.city = code
	s.moveLocked(city.Position(), ZoomCity)
	return nil
}

// UseMyLocation centres on the user's position. When loc is nil the
// scanner's own geolocator is used. On failure it falls back to the default city.
func (s *Scanner) UseMyLocation(ctx context.Context, loc Geolocator) error {
	if loc == nil {
		loc = s.locator
	}
	if !s.Initialized() {
		return ErrNotInitialized
	}

	var (
		pos types.LatLng
		err = ErrGeolocationUnsupported
	)
	if loc.Supported() {
		pos, err = loc.CurrentPosition(ctx)
	}

	if err != nil {
		log.Printf("[jobs] geolocation failed: %v", err)
		def, _ := s.catalog.City(s.catalog.DefaultCity)
		s.alerts.Alert(fmt.Sprintf("Could not get your location. Using %s instead.", def.Name))

		s.mu.Lock()
		s.city = def.Code
		s.moveLocked(def.Position(), ZoomDefault)
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.city = ""
	s.moveLocked(pos, ZoomLocation)
	s.mu.Unlock()
	return nil
}

func (s *Scanner) moveLocked(p types.LatLng, zoom int) {
	s.center = p
	s.zoom = zoom
	s.mapView.SetView(p, zoom)
	s.mapView.SetCircle(p, s.radiusMeters())
	s.refreshLocked(p)
}

func (s *Scanner) refreshLocked(center types.LatLng) {
	s.markers = Classify(s.catalog.Jobs, center, s.radiusMeters())
	s.mapView.SetMarkers(s.markers)
}

// Classify builds one marker per job. A job is in range when its distance
// from center is at most radiusMeters.
func Classify(jobs []types.JobListing, center types.LatLng, radiusMeters float64) []Marker {
	markers := make([]Marker, 0, len(jobs))
	for _, j := range jobs {
		d := Distance(center, j.Position())
		m := Marker{
			JobID:     j.ID,
			Title:     j.Title,
			Position:  j.Position(),
			Distance:  d,
			Scale:     ScaleOutOfRange,
			FillColor: ColorOutOfRange,
		}
		if d <= radiusMeters {
			m.InRange = true
			m.Scale = ScaleInRange
			m.FillColor = ColorInRange
		}
		markers = append(markers, m)
	}
	return markers
}

// InRange returns the ids of the listings currently inside the circle.
func (s *Scanner) InRange() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for _, m := range s.markers {
		if m.InRange {
			ids = append(ids, m.JobID)
		}
	}
	return ids
}

// FormatKm rounds to one decimal and drops a trailing ".0".
func FormatKm(km float64) string {
	return humanize.Ftoa(math.Round(km*10) / 10)
}

// Select opens the detail panel for a job, replacing any previous selection.
func (s *Scanner) Select(id int) (*Detail, error) {
	job, ok := s.catalog.Job(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJob, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	km := Distance(s.center, job.Position()) / 1000
	d := &Detail{
		Job:        job,
		DistanceKm: math.Round(km*10) / 10,
		Meta:       fmt.Sprintf("%s · approx %s km from centre", job.Company, FormatKm(km)),
	}
	s.selected = d
	return d, nil
}

// Selected returns the open detail panel, if any.
func (s *Scanner) Selected() *Detail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Close hides the detail panel.
func (s *Scanner) Close() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// ApplyMessage is the placeholder shown for the apply action.
func ApplyMessage(job types.JobListing) string {
	return "Application feature coming soon.\n\nFor now, mention this role when you apply:\n\n" +
		job.Title + " at " + job.Company
}

// Apply shows the placeholder apply message for the selected job. It returns
// false when nothing is selected.
func (s *Scanner) Apply() (string, bool) {
	sel := s.Selected()
	if sel == nil {
		return "", false
	}
	msg := ApplyMessage(sel.Job)
	s.alerts.Alert(msg)
	return msg, true
}

// BuildCV closes the panel, pre-fills the CV target role and opens the CV builder.
func (s *Scanner) BuildCV() error {
	s.mu.Lock()
	sel := s.selected
	s.selected = nil
	s.mu.Unlock()
	if sel == nil {
		return nil
	}

	s.roles.SetTargetRole(sel.Job.Title)
	return s.nav.Show(types.SectionCVBuilder)
}

// TrainMe closes the panel and opens the voice assistant.
func (s *Scanner) TrainMe() error {
	s.mu.Lock()
	sel := s.selected
	s.selected = nil
	s.mu.Unlock()
	if sel == nil {
		return nil
	}
	return s.nav.Show(types.SectionVoice)
}

// View is the renderable state of the job scanner.
type View struct {
	Initialized  bool         `json:"initialized"`
	Available    bool         `json:"available"`
	Center       types.LatLng `json:"center"`
	Zoom         int          `json:"zoom"`
	RadiusKm     float64      `json:"radius_km"`
	RadiusLabel  string       `json:"radius_label"`
	City         string       `json:"city"`
	Cities       []City       `json:"cities"`
	Markers      []Marker     `json:"markers"`
	InRangeCount int          `json:"in_range_count"`
	Selected     *Detail      `json:"selected,omitempty"`
}

// View returns a snapshot of the scanner.
func (s *Scanner) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.markers {
		if m.InRange {
			count++
		}
	}
	return View{
		Initialized:  s.initialized,
		Available:    s.mapView.Supported(),
		Center:       s.center,
		Zoom:         s.zoom,
		RadiusKm:     s.radiusKm,
		RadiusLabel:  humanize.Ftoa(s.radiusKm) + " km",
		City:         s.city,
		Cities:       s.catalog.Cities,
		Markers:      append([]Marker(nil), s.markers...),
		InRangeCount: count,
		Selected:     s.selected,
	}
}
