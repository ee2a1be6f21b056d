package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"duewatch/internal/config"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/scheduler"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon
	access *expiring.StoreAccess

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
		access: expiring.NewStoreAccess(d.store, cfg.Dispatch.IncludeExpired),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/run", authMiddleware(srv.token, srv.handleRun))
	mux.HandleFunc("/api/deadlines/expiring", authMiddleware(srv.token, srv.handleExpiring))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"running":       status.Running,
		"run_active":    status.RunActive,
		"next_run":      status.NextRun.Format(time.RFC3339),
		"last_run":      status.LastRun,
		"database_path": status.DatabasePath,
	})
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := s.daemon.sched.RunNow(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		s.writeError(w, http.StatusConflict, "run already in progress")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, map[string]any{
			"source":  summary.Source,
			"checked": summary.Checked,
			"sent":    summary.Sent,
			"skipped": summary.Skipped,
			"failed":  summary.Failed,
		})
	}
}

// wireDeadline matches the JSON shape the remote client consumes, so one
// duewatch instance can act as the upstream for another.
type wireDeadline struct {
	DeadlineID     int64  `json:"deadline_id"`
	OwnerID        int64  `json:"owner_id"`
	OwnerName      string `json:"owner_name"`
	OwnerTaxID     string `json:"owner_tax_id"`
	ChannelID      string `json:"channel_id"`
	NotifyEnabled  bool   `json:"notify_enabled"`
	Category       string `json:"category"`
	Label          string `json:"label"`
	ExpirationDate string `json:"expiration_date"`
	DaysRemaining  int    `json:"days_remaining"`
}

func (s *apiServer) handleExpiring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days := 14
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = parsed
	}

	records, err := s.access.ExpiringDeadlines(r.Context(), days)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]wireDeadline, 0, len(records))
	for _, record := range records {
		payload = append(payload, wireDeadline{
			DeadlineID:     record.DeadlineID,
			OwnerID:        record.OwnerID,
			OwnerName:      record.OwnerName,
			OwnerTaxID:     record.OwnerTaxID,
			ChannelID:      record.ChannelID,
			NotifyEnabled:  record.NotifyEnabled,
			Category:       record.Category,
			Label:          record.Label,
			ExpirationDate: record.ExpirationDate.Format(time.DateOnly),
			DaysRemaining:  record.DaysRemaining,
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
