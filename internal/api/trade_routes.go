package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/pnl"
)

const maxBodyBytes = 64 << 10

type tradeJSON struct {
	models.Trade
	pnl.Derived
}

func toTradeJSON(trades []models.Trade) []tradeJSON {
	out := make([]tradeJSON, len(trades))
	for i, t := range trades {
		out[i] = tradeJSON{Trade: t, Derived: pnl.Derive(t)}
	}
	return out
}

// mutationResponse reports an optimistic change. Pending is true while the
// store call is still in flight.
type mutationResponse struct {
	Trade      *tradeJSON `json:"trade,omitempty"`
	ID         int64      `json:"id"`
	Pending    bool       `json:"pending"`
	RolledBack bool       `json:"rolledBack"`
	Notice     string     `json:"notice,omitempty"`
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, toTradeJSON(s.journal.Filtered(f, s.now())))
}

func (s *Server) handleTradesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}
	if !s.ready(w) {
		return
	}

	var day []models.Trade
	for _, t := range s.journal.Trades() {
		if t.TradeDate == date {
			day = append(day, t)
		}
	}
	writeJSON(w, http.StatusOK, toTradeJSON(day))
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (models.TradeDraft, error) {
	var d models.TradeDraft
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&d)
	return d, err
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, p, err := s.journal.Add(r.Context(), d)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	s.respondMutation(w, r, &t, p)
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := decodeDraft(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, p, err := s.journal.Update(r.Context(), id, d)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	s.respondMutation(w, r, &t, p)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.journal.Delete(r.Context(), id)
	if err != nil {
		s.writeMutationError(w, err)
		return
	}
	s.respondMutation(w, r, nil, p)
}

// respondMutation answers 202 right away, or with ?wait=true blocks until the
// store settles: 200 when acknowledged, 502 after a rollback.
func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, t *models.Trade, p *journal.Pending) {
	resp := mutationResponse{ID: p.ID, Pending: true}
	if t != nil {
		tj := tradeJSON{Trade: *t, Derived: pnl.Derive(*t)}
		resp.Trade = &tj
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.waitTimeout)
	defer cancel()

	err := p.Wait(ctx)
	switch {
	case err == nil:
		resp.Pending = false
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, journal.ErrRolledBack):
		resp.Pending = false
		resp.RolledBack = true
		resp.Notice = p.Notice()
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeJSON(w, http.StatusAccepted, resp)
	}
}
