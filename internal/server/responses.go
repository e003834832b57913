package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/voice"
)

// ActionResponse is returned by every state-changing endpoint.
type ActionResponse struct {
	State    app.View        `json:"state"`
	Alerts   []string        `json:"alerts"`
	Commands []voice.Command `json:"commands,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ErrorResponse is returned when an action fails. Alerts raised by the
// failing action are included.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Alerts []string `json:"alerts,omitempty"`
}

func (s *Server) action(w http.ResponseWriter, a *app.App, resp ActionResponse) {
	a.Changed()
	resp.State = a.View()
	resp.Alerts = a.DrainAlerts()
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) actionError(w http.ResponseWriter, a *app.App, err error) {
	a.Changed()
	msg := err.Error()
	var be *backend.Error
	if errors.As(err, &be) {
		msg = backend.UserMessage(err, msg)
	}
	s.jsonResponse(w, HTTPStatus(err), ErrorResponse{Error: msg, Alerts: a.DrainAlerts()})
}

// result writes an ActionResponse for a nil err and an ErrorResponse otherwise.
func (s *Server) result(w http.ResponseWriter, a *app.App, err error) {
	if err != nil {
		s.actionError(w, a, err)
		return
	}
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.jsonResponse(w, http.StatusOK, a.View())
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.jsonResponse(w, http.StatusOK, map[string][]string{"alerts": a.DrainAlerts()})
}
