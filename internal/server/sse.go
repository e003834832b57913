package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/spanisami/internal/app"
)

const sseKeepAlive = 25 * time.Second

// SSEWriter writes Server-Sent Events.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEWriter sets the event-stream headers on w.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSEWriter{w: w, rc: http.NewResponseController(w)}
}

// WriteEvent sends one event with a JSON payload.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// Streams outlive the server's write timeout.
	_ = s.rc.SetWriteDeadline(time.Time{})
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

// WriteComment sends a keep-alive comment line.
func (s *SSEWriter) WriteComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}

// handleEvents streams a "state" event with the full view after every change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, a *app.App) {
	changes, unsubscribe := a.Subscribe()
	defer unsubscribe()

	sse := NewSSEWriter(w)
	if err := sse.WriteEvent("state", a.View()); err != nil {
		log.Printf("[server] event stream: %v", err)
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if err := sse.WriteEvent("state", a.View()); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteComment("ping"); err != nil {
				return
			}
		}
	}
}
