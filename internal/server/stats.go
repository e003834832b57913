package server

import (
	"net/http"
	"sync/atomic"
)

// Stats counts completed user actions across all sessions.
type Stats struct {
	profilesCreated atomic.Int64
	cvsGenerated    atomic.Int64
	pdfsExported    atomic.Int64
	sessionsCreated atomic.Int64
}

// StatsView is the JSON form of Stats.
type StatsView struct {
	ProfilesCreated int64 `json:"profiles_created"`
	CVsGenerated    int64 `json:"cvs_generated"`
	PDFsExported    int64 `json:"pdfs_exported"`
	SessionsCreated int64 `json:"sessions_created"`
	ActiveSessions  int   `json:"active_sessions"`
}

func (st *Stats) snapshot(active int) StatsView {
	return StatsView{
		ProfilesCreated: st.profilesCreated.Load(),
		CVsGenerated:    st.cvsGenerated.Load(),
		PDFsExported:    st.pdfsExported.Load(),
		SessionsCreated: st.sessionsCreated.Load(),
		ActiveSessions:  active,
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.stats.snapshot(s.sessions.count()))
}
