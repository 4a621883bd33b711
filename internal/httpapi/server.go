package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"WasteReminder/internal/domain"
	"WasteReminder/internal/ports"
	"WasteReminder/internal/usecase"
)

// Refresher is the slice of the refresh use case the HTTP layer needs.
type Refresher interface {
	Refresh(ctx context.Context) (domain.ReminderMapping, error)
	Latest() usecase.Snapshot
}

// Server exposes stored reminder dates over HTTP.
type Server struct {
	repo      ports.ReminderRepository
	refresher Refresher
	logger    *slog.Logger
}

// NewServer wires the read side (repository) and the refresh trigger.
func NewServer(repo ports.ReminderRepository, refresher Refresher, logger *slog.Logger) *Server {
	return &Server{repo: repo, refresher: refresher, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dates", s.handleDates)
	mux.HandleFunc("GET /dates/{date}", s.handleDate)
	mux.HandleFunc("GET /reminders", s.handleReminders)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	return mux
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.repo.List(r.Context())
	if err != nil {
		s.fail(w, "list dates", err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleDate answers with the first stored row for the date, or null.
func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("date")
	if _, err := time.Parse(domain.DateLayout, raw); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	row, err := s.repo.FirstByDate(r.Context(), domain.ReminderDate(raw))
	if err != nil {
		s.fail(w, "first by date", err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

type remindersResponse struct {
	Reminders   domain.ReminderMapping `json:"reminders"`
	RefreshedAt *time.Time             `json:"refreshed_at"`
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Latest()
	resp := remindersResponse{Reminders: snap.Mapping}
	if !snap.RefreshedAt.IsZero() {
		resp.RefreshedAt = &snap.RefreshedAt
	}
	if resp.Reminders == nil {
		resp.Reminders = domain.ReminderMapping{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Latest()
	if snap.Err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  snap.Err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	mapping, err := s.refresher.Refresh(r.Context())
	if err != nil {
		s.fail(w, "refresh", err, http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, mapping)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error, status int) {
	if s.logger != nil {
		s.logger.Error("request failed", "op", op, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Error("encode response", "error", err)
	}
}
