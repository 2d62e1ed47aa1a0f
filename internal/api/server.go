package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/daterange"
	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/notifications"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Options struct {
	Port       int
	CORSOrigin string
	// WaitTimeout caps how long ?wait=true blocks on the store.
	WaitTimeout time.Duration
}

type Server struct {
	journal     *journal.Manager
	feed        *notifications.Feed
	log         *zap.Logger
	now         func() time.Time
	waitTimeout time.Duration
	handler     http.Handler
	httpServer  *http.Server
}

func NewServer(mgr *journal.Manager, feed *notifications.Feed, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if feed == nil {
		feed = notifications.NewFeed(0)
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 30 * time.Second
	}
	s := &Server{
		journal:     mgr,
		feed:        feed,
		log:         log.Named("api"),
		now:         time.Now,
		waitTimeout: opts.WaitTimeout,
	}

	mux := http.NewServeMux()

	// Trade routes
	mux.HandleFunc("GET /v1/trades", s.handleListTrades)
	mux.HandleFunc("GET /v1/trades/day/{date}", s.handleTradesByDay)
	mux.HandleFunc("POST /v1/trades", s.handleAddTrade)
	mux.HandleFunc("PUT /v1/trades/{id}", s.handleUpdateTrade)
	mux.HandleFunc("DELETE /v1/trades/{id}", s.handleDeleteTrade)

	// Stats routes
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/stats/cumulative", s.handleCumulative)
	mux.HandleFunc("GET /v1/stats/daily", s.handleDaily)

	// Report routes
	mux.HandleFunc("GET /v1/reports/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /v1/reports/stats.yaml", s.handleStatsYAML)

	mux.HandleFunc("GET /v1/notifications", s.handleNotifications)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = requestIDMiddleware(s.loggingMiddleware(corsMiddleware(mux, opts.CORSOrigin)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.WaitTimeout + 10*time.Second,
	}

	return s
}

// Handler exposes the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func parseFilter(r *http.Request) (daterange.Filter, error) {
	return daterange.Parse(r.URL.Query().Get("filter"))
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid trade id %q", r.PathValue("id"))
	}
	return id, nil
}

func parseType(r *http.Request) (models.TradeType, error) {
	v := r.URL.Query().Get("type")
	if v == "" || v == "all" {
		return "", nil
	}
	return models.ParseTradeType(v)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type setupRequiredResponse struct {
	Error         string `json:"error"`
	SetupRequired bool   `json:"setupRequired"`
}

// ready rejects the request unless the journal has loaded.
func (s *Server) ready(w http.ResponseWriter) bool {
	switch s.journal.State() {
	case journal.StateReady:
		return true
	case journal.StateSetupRequired:
		writeJSON(w, http.StatusServiceUnavailable, setupRequiredResponse{
			Error:         "journal endpoint is not configured; set JOURNAL_ENDPOINT",
			SetupRequired: true,
		})
	case journal.StateFailed:
		writeError(w, http.StatusServiceUnavailable, "failed to load trades")
	default:
		writeError(w, http.StatusServiceUnavailable, "trades are still loading")
	}
	return false
}

func (s *Server) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidTrade):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, journal.ErrSetupRequired), errors.Is(err, journal.ErrNotReady):
		s.ready(w)
	default:
		s.log.Error("mutation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
