package server

import (
	"net/http"

	"github.com/jonathan/spanisami/internal/app"
)

// Speech engine events reported by the browser.
const (
	VoiceEventStart     = "start"
	VoiceEventResult    = "result"
	VoiceEventNoMatch   = "nomatch"
	VoiceEventError     = "error"
	VoiceEventEnd       = "end"
	VoiceEventSpeechEnd = "speechend"
)

// VoiceLanguageRequest selects the conversation language.
type VoiceLanguageRequest struct {
	Language string `json:"language"`
}

// VoiceEventRequest is one speech engine event.
type VoiceEventRequest struct {
	Type     string   `json:"type"`
	Segments []string `json:"segments,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (s *Server) voiceResult(w http.ResponseWriter, a *app.App, err error) {
	commands := a.SpeechEngine().Drain()
	if err != nil {
		s.actionError(w, a, err)
		return
	}
	s.action(w, a, ActionResponse{Commands: commands})
}

func (s *Server) handleVoiceLanguage(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req VoiceLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	if req.Language == "" {
		s.actionError(w, a, &ErrValidation{Field: "language", Message: "required"})
		return
	}
	a.Voice().SetLanguage(req.Language)
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleVoiceToggle(w http.ResponseWriter, _ *http.Request, a *app.App) {
	s.voiceResult(w, a, a.Voice().Toggle())
}

func (s *Server) handleVoiceEvent(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req VoiceEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}

	assistant := a.Voice()
	var err error
	switch req.Type {
	case VoiceEventStart:
		assistant.OnStart()
	case VoiceEventResult:
		assistant.OnResult(req.Segments)
	case VoiceEventNoMatch:
		assistant.OnNoMatch()
	case VoiceEventError:
		assistant.OnError(req.Error)
	case VoiceEventSpeechEnd:
		assistant.OnSpeechEnd()
	case VoiceEventEnd:
		err = assistant.OnEnd(r.Context())
	default:
		err = &ErrValidation{Field: "type", Message: "unknown voice event " + req.Type}
	}
	s.voiceResult(w, a, err)
}
