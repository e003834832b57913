package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/types"
)

func (s *Server) handleShowSection(w http.ResponseWriter, r *http.Request, a *app.App) {
	s.result(w, a, a.Router().Show(types.Section(r.PathValue("section"))))
}

func (s *Server) handleMapsReady(w http.ResponseWriter, _ *http.Request, a *app.App) {
	a.Router().MapsReady()
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleHeroSelect(w http.ResponseWriter, r *http.Request, a *app.App) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.actionError(w, a, &ErrValidation{Field: "index", Message: "must be a number"})
		return
	}
	if err := a.Hero().Select(i); err != nil {
		s.actionError(w, a, &ErrValidation{Field: "index", Message: err.Error()})
		return
	}
	s.action(w, a, ActionResponse{})
}
