package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/jobscanner"
	"github.com/jonathan/spanisami/internal/types"
)

// RadiusRequest sets the search radius.
type RadiusRequest struct {
	RadiusKm float64 `json:"radius_km"`
}

// CityRequest jumps to a city centre by code.
type CityRequest struct {
	City string `json:"city"`
}

// LocateRequest carries the browser's geolocation result: a position, an
// error message, or the lack of geolocation support.
type LocateRequest struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Error       string   `json:"error,omitempty"`
	Unsupported bool     `json:"unsupported,omitempty"`
}

func (req LocateRequest) locator() jobscanner.Geolocator {
	switch {
	case req.Unsupported:
		return jobscanner.NoLocator{}
	case req.Error != "":
		return jobscanner.FixedLocator{Err: errors.New(req.Error)}
	case req.Lat == nil || req.Lng == nil:
		return jobscanner.FixedLocator{Err: errors.New("position unavailable")}
	default:
		return jobscanner.FixedLocator{Position: types.LatLng{Lat: *req.Lat, Lng: *req.Lng}}
	}
}

func (s *Server) handleJobsRadius(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req RadiusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Scanner().SetRadiusKm(req.RadiusKm))
}

func (s *Server) handleJobsCenter(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.LatLng
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Scanner().SetCenter(req))
}

func (s *Server) handleJobsCity(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req CityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Scanner().SelectCity(req.City))
}

func (s *Server) handleJobsLocate(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req LocateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Scanner().UseMyLocation(r.Context(), req.locator()))
}

func (s *Server) handleJobsSelect(w http.ResponseWriter, r *http.Request, a *app.App) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.actionError(w, a, &ErrValidation{Field: "id", Message: "must be a number"})
		return
	}
	_, err = a.Scanner().Select(id)
	s.result(w, a, err)
}

func (s *Server) handleJobsClose(w http.ResponseWriter, _ *http.Request, a *app.App) {
	a.Scanner().Close()
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleJobsApply(w http.ResponseWriter, _ *http.Request, a *app.App) {
	msg, _ := a.Scanner().Apply()
	s.action(w, a, ActionResponse{Message: msg})
}

func (s *Server) handleJobsBuildCV(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.result(w, a, a.Scanner().BuildCV())
}

func (s *Server) handleJobsTrain(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.result(w, a, a.Scanner().TrainMe())
}
