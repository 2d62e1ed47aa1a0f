// Package sheetstore serves the journal's remote-store wire contract on top
// of a RowStore. It is the self-hosted stand-in for the spreadsheet script.
package sheetstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/remotestore"
)

const maxBodyBytes = 64 << 10

var ErrLockTimeout = errors.New("timed out waiting for the write lock")

type Handler struct {
	rows     RowStore
	lock     *semaphore.Weighted
	lockWait time.Duration
	log      *zap.Logger
}

// NewHandler serializes every write behind one lock. A writer that cannot
// take the lock within lockWait is answered with an error.
func NewHandler(rows RowStore, lockWait time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	return &Handler{
		rows:     rows,
		lock:     semaphore.NewWeighted(1),
		lockWait: lockWait,
		log:      log.Named("sheetstore"),
	}
}

type listResponse struct {
	Trades []models.Trade `json:"trades"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows.Rows(r.Context())
	if err != nil {
		h.log.Error("read rows", zap.Error(err))
		writeAck(w, errorAck(err.Error()))
		return
	}

	trades := make([]models.Trade, 0, len(rows))
	for i, cells := range rows {
		t, err := models.TradeFromRow(cells)
		if err != nil {
			h.log.Warn("skipping malformed row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		trades = append(trades, t)
	}
	writeJSON(w, listResponse{Trades: trades})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.lockWait)
	err := h.lock.Acquire(ctx, 1)
	cancel()
	if err != nil {
		h.log.Warn("write lock not acquired", zap.Duration("wait", h.lockWait))
		writeAck(w, errorAck(ErrLockTimeout.Error()))
		return
	}
	defer h.lock.Release(1)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeAck(w, errorAck(fmt.Sprintf("read body: %v", err)))
		return
	}

	var req remotestore.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeAck(w, errorAck(fmt.Sprintf("invalid JSON: %v", err)))
		return
	}

	ack, err := h.apply(r.Context(), req)
	if err != nil {
		h.log.Error("apply action", zap.String("action", string(req.Action)), zap.Error(err))
		ack = errorAck(err.Error())
	}
	writeAck(w, ack)
}

func (h *Handler) apply(ctx context.Context, req remotestore.Request) (remotestore.Ack, error) {
	switch req.Action {
	case remotestore.ActionAdd:
		if req.Trade == nil {
			return errorAck("Missing trade"), nil
		}
		if err := h.rows.Append(ctx, req.Trade.Row()); err != nil {
			return remotestore.Ack{}, err
		}
		h.log.Info("trade added", zap.Int64("id", req.Trade.ID))
		return remotestore.Ack{Status: "success", Message: "Trade added successfully", Trade: req.Trade}, nil

	case remotestore.ActionUpdate:
		if req.Trade == nil {
			return errorAck("Missing trade"), nil
		}
		ok, err := h.rows.Replace(ctx, req.Trade.ID, req.Trade.Row())
		if err != nil {
			return remotestore.Ack{}, err
		}
		if !ok {
			return errorAck("Trade not found for update"), nil
		}
		h.log.Info("trade updated", zap.Int64("id", req.Trade.ID))
		return remotestore.Ack{Status: "success", Message: "Trade updated successfully", Trade: req.Trade}, nil

	case remotestore.ActionDelete:
		if req.ID == nil {
			return errorAck("Missing id"), nil
		}
		ok, err := h.rows.Remove(ctx, *req.ID)
		if err != nil {
			return remotestore.Ack{}, err
		}
		if !ok {
			return errorAck("Trade not found for deletion"), nil
		}
		h.log.Info("trade deleted", zap.Int64("id", *req.ID))
		return remotestore.Ack{Status: "success", Message: "Trade deleted successfully"}, nil
	}
	return errorAck("Invalid action"), nil
}

func errorAck(msg string) remotestore.Ack {
	return remotestore.Ack{Status: "error", Message: msg}
}

// The backend always answers 200; failures travel in the status field.
func writeAck(w http.ResponseWriter, ack remotestore.Ack) {
	writeJSON(w, ack)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
