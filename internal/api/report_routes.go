package api

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/report"
	"github.com/kjannette/trahn-journal/internal/stats"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := parseType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}

	trades := report.Filter{Text: r.URL.Query().Get("q"), Type: typ}.Apply(s.journal.Filtered(f, s.now()))

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, trades); err != nil {
		if errors.Is(err, report.ErrNoData) {
			writeError(w, http.StatusNotFound, "No data to export.")
			return
		}
		s.log.Error("csv export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export trades")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trade_report.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleStatsYAML(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}

	now := s.now()
	trades := s.journal.Filtered(f, now)
	doc := report.NewStatsReport(string(f), now, stats.Summarize(trades), stats.Daily(trades))

	var buf bytes.Buffer
	if err := report.WriteStatsYAML(&buf, doc); err != nil {
		s.log.Error("stats yaml failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render stats")
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notices := s.feed.Recent()
	if limit := parseLimit(r, len(notices)); limit < len(notices) {
		notices = notices[:limit]
	}
	writeJSON(w, http.StatusOK, notices)
}
