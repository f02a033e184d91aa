package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AntonStoeckl/contention-lab/contention"
)

const (
	contentTypeJSON   = "application/json; charset=UTF-8"
	readHeaderTimeout = 5 * time.Second
	msgLogsCleared    = "logs cleared"
	msgUnknownPath    = "unknown endpoint"
)

// server exposes one Coordinator over HTTP. Every run request resets the pool and runs one
// experiment with the configured capacity and participant count.
type server struct {
	coordinator  *contention.Coordinator
	eventLog     *contention.EventLog
	capacity     int64
	participants int
	logger       *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}

type messageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type statusResponse struct {
	Phase   string                 `json:"phase"`
	Count   int64                  `json:"count"`
	Version uint64                 `json:"version"`
	LastRun *contention.RunSummary `json:"lastRun,omitempty"`
}

func newServer(
	coordinator *contention.Coordinator,
	eventLog *contention.EventLog,
	capacity int64,
	participants int,
	logger *slog.Logger,
) *server {

	return &server{
		coordinator:  coordinator,
		eventLog:     eventLog,
		capacity:     capacity,
		participants: participants,
		logger:       logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	for _, kind := range contention.StrategyKinds() {
		path := "/api/" + string(kind)
		mux.HandleFunc("GET "+path, s.handleRun(kind))
		mux.HandleFunc("POST "+path, s.handleRun(kind))
	}

	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/logs/clear", s.handleClearLogs)
	mux.HandleFunc("POST /api/logs/clear", s.handleClearLogs)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("/api/", s.handleUnknown)

	return withCORS(mux)
}

func (s *server) handleRun(kind contention.StrategyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.eventLog.Appendf("[API] request received: %s %s", r.Method, r.URL.Path)

		summary, err := s.coordinator.Run(r.Context(), kind, s.capacity, s.participants)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}

		s.eventLog.Appendf("[API] %s response: %d winners, %d remaining", kind, summary.SuccessCount(), summary.FinalCount)
		s.writeJSON(w, http.StatusOK, newRunResponse(summary))
	}
}

func (s *server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, logsResponse{Logs: s.coordinator.Log()})
}

func (s *server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	s.coordinator.ClearLog()
	s.writeJSON(w, http.StatusOK, messageResponse{Message: msgLogsCleared, Status: "success"})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.coordinator.PoolStatus(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	response := statusResponse{
		Phase:   s.coordinator.Phase().String(),
		Count:   status.Count,
		Version: status.Version,
	}

	if summary, ok := s.coordinator.LastSummary(); ok {
		response.LastRun = &summary
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *server) handleUnknown(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusNotFound, errorResponse{Error: msgUnknownPath})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contention.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, contention.ErrUnknownStrategy),
		errors.Is(err, contention.ErrInvalidCapacity),
		errors.Is(err, contention.ErrInvalidParticipantCount):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err.Error(), "status", status)
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := jsonAPI.NewEncoder(w).Encode(value); err != nil {
		s.logger.Error("failed to write response", "error", err.Error())
	}
}

// withCORS allows the browser demo page to call the API from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
