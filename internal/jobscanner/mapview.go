package jobscanner

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/spanisami/internal/types"
)

// Marker styles.
const (
	ColorInRange    = "#22C55E"
	ColorOutOfRange = "#9CA3AF"
	ColorCircle     = "#22C55E"
	ScaleInRange    = 7
	ScaleOutOfRange = 6
)

// Marker is one job pin as drawn on the map.
type Marker struct {
	JobID     int          `json:"job_id"`
	Title     string       `json:"title"`
	Position  types.LatLng `json:"position"`
	InRange   bool         `json:"in_range"`
	Scale     int          `json:"scale"`
	FillColor string       `json:"fill_color"`
	Distance  float64      `json:"distance_m"`
}

// MapView is the interactive map surface.
type MapView interface {
	Supported() bool
	SetView(center types.LatLng, zoom int)
	SetCircle(center types.LatLng, radiusMeters float64)
	SetMarkers(markers []Marker)
}

// ErrGeolocationUnsupported is returned by geolocators that cannot locate the user.
var ErrGeolocationUnsupported = errors.New("geolocation not supported")

// Geolocator resolves the user's current position.
type Geolocator interface {
	Supported() bool
	CurrentPosition(ctx context.Context) (types.LatLng, error)
}

// MapState is the drawable state held by a RecordingMap.
type MapState struct {
	Center       types.LatLng `json:"center"`
	Zoom         int          `json:"zoom"`
	CircleCenter types.LatLng `json:"circle_center"`
	RadiusMeters float64      `json:"radius_m"`
	CircleColor  string       `json:"circle_color"`
	Markers      []Marker     `json:"markers"`
}

// RecordingMap keeps the latest map state for the browser to draw.
type RecordingMap struct {
	mu    sync.Mutex
	state MapState
}

// NewRecordingMap creates an empty map.
func NewRecordingMap() *RecordingMap {
	return &RecordingMap{state: MapState{CircleColor: ColorCircle}}
}

func (m *RecordingMap) Supported() bool { return true }

func (m *RecordingMap) SetView(center types.LatLng, zoom int) {
	m.mu.Lock()
	m.state.Center, m.state.Zoom = center, zoom
	m.mu.Unlock()
}

func (m *RecordingMap) SetCircle(center types.LatLng, radiusMeters float64) {
	m.mu.Lock()
	m.state.CircleCenter, m.state.RadiusMeters = center, radiusMeters
	m.mu.Unlock()
}

func (m *RecordingMap) SetMarkers(markers []Marker) {
	m.mu.Lock()
	m.state.Markers = append([]Marker(nil), markers...)
	m.mu.Unlock()
}

// State returns a copy of the current map state.
func (m *RecordingMap) State() MapState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Markers = append([]Marker(nil), m.state.Markers...)
	return s
}

// UnavailableMap stands in when the map provider failed to load.
type UnavailableMap struct{}

func (UnavailableMap) Supported() bool                 { return false }
func (UnavailableMap) SetView(types.LatLng, int)       {}
func (UnavailableMap) SetCircle(types.LatLng, float64) {}
func (UnavailableMap) SetMarkers([]Marker)             {}

// FixedLocator reports a position supplied by the client, or its error.
type FixedLocator struct {
	Position types.LatLng
	Err      error
}

func (f FixedLocator) Supported() bool { return true }

func (f FixedLocator) CurrentPosition(context.Context) (types.LatLng, error) {
	if f.Err != nil {
		return types.LatLng{}, f.Err
	}
	return f.Position, nil
}

// NoLocator stands in when the client has no geolocation.
type NoLocator struct{}

func (NoLocator) Supported() bool { return false }

func (NoLocator) CurrentPosition(context.Context) (types.LatLng, error) {
	return types.LatLng{}, ErrGeolocationUnsupported
}
