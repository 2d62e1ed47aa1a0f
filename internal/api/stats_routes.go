package api

import (
	"net/http"

	"github.com/kjannette/trahn-journal/internal/stats"
)

type statsResponse struct {
	Filter  string        `json:"filter"`
	Summary stats.Summary `json:"summary"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Filter:  string(f),
		Summary: stats.Summarize(s.journal.Filtered(f, s.now())),
	})
}

func (s *Server) handleCumulative(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, stats.Cumulative(s.journal.Filtered(f, s.now())))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, stats.Daily(s.journal.Filtered(f, s.now())))
}
