package api

import (
	"net/http"
	"time"

	"github.com/kjannette/trahn-journal/internal/journal"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Journal journal.State `json:"journal"`
	Trades  int           `json:"trades"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.journal.State()
	status := "ok"
	if state != journal.StateReady {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  healthServices{Journal: state, Trades: len(s.journal.Trades())},
	})
}
