package jobscanner

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/spanisami/internal/types"
)

type alerts struct{ msgs []string }

func (a *alerts) Alert(msg string) { a.msgs = append(a.msgs, msg) }

type roleSink struct{ role string }

func (r *roleSink) SetTargetRole(role string) { r.role = role }

type harness struct {
	scanner  *Scanner
	mapView  *RecordingMap
	alerts   *alerts
	roles    *roleSink
	sections []types.Section
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	h := &harness{mapView: NewRecordingMap(), alerts: &alerts{}, roles: &roleSink{}}
	nav := NavigatorFunc(func(s types.Section) error {
		h.sections = append(h.sections, s)
		return nil
	})
	h.scanner = New(cat, h.mapView, nil, h.alerts, h.roles, nav)
	require.NoError(t, h.scanner.Init())
	return h
}

func sortedInRange(s *Scanner) []int {
	ids := s.InRange()
	sort.Ints(ids)
	return ids
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Len(t, cat.Jobs, 15)
	assert.Len(t, cat.Cities, 8)
	assert.Equal(t, "jhb", cat.DefaultCity)
	assert.Equal(t, 5.0, cat.DefaultRadiusKm)

	city, ok := cat.City("gqe")
	require.True(t, ok)
	assert.Equal(t, "Gqeberha", city.Name)
	assert.Equal(t, types.LatLng{Lat: -33.9608, Lng: 25.6022}, city.Position())

	job, ok := cat.Job(3)
	require.True(t, ok)
	assert.Equal(t, "Tutor – Grade 8–10 Maths", job.Title)
	assert.Len(t, job.Requirements, 3)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "cities: [:"},
		{name: "no cities", yaml: "default_city: jhb\ndefault_radius_km: 5\n"},
		{name: "unknown default", yaml: "default_city: xx\ndefault_radius_km: 5\ncities:\n  - code: jhb\n"},
		{name: "duplicate job", yaml: "default_city: jhb\ndefault_radius_km: 5\ncities:\n  - code: jhb\njobs:\n  - id: 1\n  - id: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDistance(t *testing.T) {
	jhb := types.LatLng{Lat: -26.2041, Lng: 28.0473}
	pta := types.LatLng{Lat: -25.7479, Lng: 28.2293}

	assert.InDelta(t, 0, Distance(jhb, jhb), 1e-9)
	assert.InDelta(t, Distance(jhb, pta), Distance(pta, jhb), 1e-6)
	assert.InDelta(t, 54_000, Distance(jhb, pta), 500)
}

func TestInit_DefaultView(t *testing.T) {
	h := newHarness(t)

	state := h.mapView.State()
	assert.Equal(t, types.LatLng{Lat: -26.2041, Lng: 28.0473}, state.Center)
	assert.Equal(t, ZoomDefault, state.Zoom)
	assert.Equal(t, 5000.0, state.RadiusMeters)
	assert.Equal(t, ColorCircle, state.CircleColor)
	assert.Len(t, state.Markers, 15, "every listing always has a marker")

	assert.Equal(t, []int{2, 4}, sortedInRange(h.scanner))
	assert.Equal(t, "5 km", h.scanner.View().RadiusLabel)

	require.NoError(t, h.scanner.Init(), "idempotent")
}

func TestInit_MapUnavailable(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	s := New(cat, UnavailableMap{}, nil, &alerts{}, &roleSink{}, nil)

	assert.ErrorIs(t, s.Init(), ErrMapUnavailable)
	assert.False(t, s.Initialized())
	assert.ErrorIs(t, s.SetRadiusKm(10), ErrNotInitialized)
	assert.False(t, s.View().Available)
}

func TestMarkerStyles(t *testing.T) {
	h := newHarness(t)
	for _, m := range h.mapView.State().Markers {
		if m.InRange {
			assert.Equal(t, ScaleInRange, m.Scale)
			assert.Equal(t, ColorInRange, m.FillColor)
		} else {
			assert.Equal(t, ScaleOutOfRange, m.Scale)
			assert.Equal(t, ColorOutOfRange, m.FillColor)
		}
	}
}

func TestSetRadiusKm_Monotonic(t *testing.T) {
	h := newHarness(t)

	prev := map[int]bool{}
	for _, km := range []float64{1, 2, 5, 7, 12, 20, 55, 2000} {
		require.NoError(t, h.scanner.SetRadiusKm(km))
		current := map[int]bool{}
		for _, id := range h.scanner.InRange() {
			current[id] = true
		}
		for id := range prev {
			assert.True(t, current[id], "job %d dropped out when radius grew to %v km", id, km)
		}
		prev = current
	}
	assert.Len(t, prev, 15)
	assert.Equal(t, 2_000_000.0, h.mapView.State().RadiusMeters)

	assert.ErrorIs(t, h.scanner.SetRadiusKm(0), ErrInvalidRadius)
	assert.ErrorIs(t, h.scanner.SetRadiusKm(-3), ErrInvalidRadius)
}

func TestClassify_InclusiveBoundary(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	center := cat.DefaultCenter()
	job, _ := cat.Job(5)
	d := Distance(center, job.Position())

	markers := Classify([]types.JobListing{job}, center, d)
	require.Len(t, markers, 1)
	assert.True(t, markers[0].InRange)

	markers = Classify([]types.JobListing{job}, center, d-0.001)
	assert.False(t, markers[0].InRange)
}

func TestSelectCity_Reclassifies(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.scanner.SelectCity("pta"))
	assert.Equal(t, []int{6, 7}, sortedInRange(h.scanner))
	state := h.mapView.State()
	assert.Equal(t, ZoomCity, state.Zoom)
	assert.Equal(t, state.Center, state.CircleCenter)
	assert.Equal(t, "pta", h.scanner.View().City)

	require.NoError(t, h.scanner.SelectCity("nowhere"))
	assert.Equal(t, "pta", h.scanner.View().City, "unknown codes are ignored")
}

func TestSetCenter_Reclassifies(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.scanner.SetCenter(types.LatLng{Lat: -33.9249, Lng: 18.4241}))
	assert.Equal(t, []int{8}, sortedInRange(h.scanner))
	assert.Equal(t, ZoomDefault, h.mapView.State().Zoom, "zoom is kept")
}

func TestUseMyLocation(t *testing.T) {
	h := newHarness(t)
	gqe := types.LatLng{Lat: -33.9608, Lng: 25.6022}

	require.NoError(t, h.scanner.UseMyLocation(context.Background(), FixedLocator{Position: gqe}))
	state := h.mapView.State()
	assert.Equal(t, gqe, state.Center)
	assert.Equal(t, gqe, state.CircleCenter)
	assert.Equal(t, ZoomLocation, state.Zoom)
	assert.Equal(t, "", h.scanner.View().City, "city selection cleared")
	assert.Equal(t, []int{14}, sortedInRange(h.scanner))
	assert.Empty(t, h.alerts.msgs)
}

func TestUseMyLocation_FailureRecentresConsistently(t *testing.T) {
	for name, loc := range map[string]Geolocator{
		"denied":      FixedLocator{Err: errors.New("permission denied")},
		"unsupported": NoLocator{},
		"default":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.scanner.SelectCity("cpt"))

			require.NoError(t, h.scanner.UseMyLocation(context.Background(), loc))
			assert.Equal(t, []string{"Could not get your location. Using Johannesburg instead."}, h.alerts.msgs)

			jhb := types.LatLng{Lat: -26.2041, Lng: 28.0473}
			state := h.mapView.State()
			assert.Equal(t, jhb, state.Center)
			assert.Equal(t, jhb, state.CircleCenter)
			assert.Equal(t, []int{2, 4}, sortedInRange(h.scanner))
		})
	}
}

func TestSelect_ThenSelectAnother(t *testing.T) {
	h := newHarness(t)

	d, err := h.scanner.Select(3)
	require.NoError(t, err)
	assert.Equal(t, "After-school Programme · Alexandra · approx 11.9 km from centre", d.Meta)
	assert.Equal(t, 11.9, d.DistanceKm)

	d, err = h.scanner.Select(9)
	require.NoError(t, err)
	assert.Equal(t, 9, h.scanner.Selected().Job.ID, "only one selection at a time")
	assert.Equal(t, []string{"Able to lift light boxes", "Comfortable standing and walking", "Attention to detail when packing"}, d.Job.Requirements)

	h.scanner.Close()
	assert.Nil(t, h.scanner.Selected())

	_, err = h.scanner.Select(99)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestFormatKm(t *testing.T) {
	assert.Equal(t, "0.2", FormatKm(0.173))
	assert.Equal(t, "11.9", FormatKm(11.858))
	assert.Equal(t, "2", FormatKm(1.96))
	assert.Equal(t, "0", FormatKm(0))
}

func TestPanelActions(t *testing.T) {
	h := newHarness(t)

	msg, ok := h.scanner.Apply()
	assert.False(t, ok, "no selection is a no-op")
	assert.Empty(t, msg)
	require.NoError(t, h.scanner.BuildCV())
	require.NoError(t, h.scanner.TrainMe())
	assert.Empty(t, h.sections)

	_, err := h.scanner.Select(4)
	require.NoError(t, err)
	msg, ok = h.scanner.Apply()
	assert.True(t, ok)
	assert.Equal(t, "Application feature coming soon.\n\nFor now, mention this role when you apply:\n\n"+
		"Shop Assistant – Clothing Store at Downtown Fashion · Johannesburg CBD", msg)
	assert.NotNil(t, h.scanner.Selected(), "apply keeps the panel open")

	require.NoError(t, h.scanner.BuildCV())
	assert.Equal(t, "Shop Assistant – Clothing Store", h.roles.role)
	assert.Equal(t, []types.Section{types.SectionCVBuilder}, h.sections)
	assert.Nil(t, h.scanner.Selected())

	_, err = h.scanner.Select(1)
	require.NoError(t, err)
	require.NoError(t, h.scanner.TrainMe())
	assert.Equal(t, types.SectionVoice, h.sections[1])
	assert.Nil(t, h.scanner.Selected())
}
