package server

import (
	"net/http"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/types"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Auth().Signup(r.Context(), req))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Auth().Verify(r.Context(), req))
}

func (s *Server) handleAuthBack(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.result(w, a, a.Auth().Back())
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.PasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Auth().SetPassword(r.Context(), req))
}

func (s *Server) handleGotoLogin(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.GotoLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Auth().GotoLogin(req))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req types.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.result(w, a, a.Auth().Login(r.Context(), req))
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request, a *app.App) {
	s.result(w, a, a.Auth().Guest(r.Context()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, a *app.App) {
	s.result(w, a, a.Auth().Logout(r.Context()))
}
