package server

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/ingest"
)

// CreateProfileRequest is the free-text self description.
type CreateProfileRequest struct {
	Text string `json:"text"`
}

// GenerateCVRequest optionally overrides the target role field.
type GenerateCVRequest struct {
	TargetRole *string `json:"target_role,omitempty"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req CreateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	if err := a.CV().CreateProfile(r.Context(), req.Text); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.stats.profilesCreated.Add(1)
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleCreateProfileFromDocument(w http.ResponseWriter, r *http.Request, a *app.App) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.actionError(w, a, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.actionError(w, a, &ErrValidation{Field: "file", Message: "a CV document is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.actionError(w, a, fmt.Errorf("read upload: %w", err))
		return
	}
	mime := ingest.DetectMime(header.Header.Get("Content-Type"), header.Filename)
	log.Printf("[server] document upload %q (%s, %d bytes)", header.Filename, mime, len(data))

	if err := a.CV().CreateProfileFromDocument(r.Context(), mime, data); err != nil {
		s.actionError(w, a, err)
		return
	}
	s.stats.profilesCreated.Add(1)
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleGenerateCV(w http.ResponseWriter, r *http.Request, a *app.App) {
	var req GenerateCVRequest
	if err := decodeJSON(r, &req); err != nil {
		s.actionError(w, a, err)
		return
	}
	cv := a.CV()
	role := cv.View().TargetRole
	if req.TargetRole != nil {
		role = *req.TargetRole
	}
	if err := cv.GenerateCV(r.Context(), role); err != nil {
		s.actionError(w, a, err)
		return
	}
	if cv.CVText() != "" {
		s.stats.cvsGenerated.Add(1)
	}
	s.action(w, a, ActionResponse{})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request, a *app.App) {
	pdf, filename, err := a.CV().ExportPDF(r.Context())
	if err != nil {
		s.actionError(w, a, err)
		return
	}
	s.stats.pdfsExported.Add(1)
	a.Changed()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Printf("[server] write pdf: %v", err)
	}
}
