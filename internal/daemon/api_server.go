package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mosaic/internal/api"
	"mosaic/internal/config"
	"mosaic/internal/logging"
	"mosaic/internal/store"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	authed := http.NewServeMux()
	authed.HandleFunc("GET /api/status", srv.handleStatus)
	authed.HandleFunc("GET /api/workspaces", srv.handleListWorkspaces)
	authed.HandleFunc("POST /api/workspaces", srv.handleCreateWorkspace)
	authed.HandleFunc("DELETE /api/workspaces/{id}", srv.handleDeleteWorkspace)
	authed.HandleFunc("GET /api/workspaces/{id}/images", srv.handleListImages)
	authed.HandleFunc("POST /api/workspaces/{id}/images", srv.handleAddImages)
	authed.HandleFunc("GET /api/jobs", srv.handleListJobs)
	authed.HandleFunc("POST /api/jobs", srv.handleCreateJob)
	authed.HandleFunc("GET /api/jobs/{id}", srv.handleGetJob)
	authed.HandleFunc("DELETE /api/jobs/{id}", srv.handleDeleteJob)
	authed.HandleFunc("POST /api/jobs/{id}/pause", srv.handleJobAction)
	authed.HandleFunc("POST /api/jobs/{id}/resume", srv.handleJobAction)
	authed.HandleFunc("POST /api/jobs/{id}/cancel", srv.handleJobAction)
	authed.HandleFunc("GET /api/jobs/{id}/results", srv.handleJobResults)
	authed.Handle("GET /metrics", d.metrics.Handler())

	// The webhook endpoint sits outside bearer auth; the URL signature is
	// its authentication.
	mux := http.NewServeMux()
	mux.Handle("/api/", authMiddleware(cfg.Paths.APIToken, authed))
	mux.Handle("/metrics", authMiddleware(cfg.Paths.APIToken, authed))
	mux.HandleFunc("POST /webhook/{id}", srv.handleWebhook)

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

// Addr returns the bound listen address once the server has started.
func (s *apiServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.daemon.workspaces.ListWorkspaces(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewWorkspaceViews(workspaces))
}

func (s *apiServer) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req api.CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ws, err := s.daemon.workspaces.CreateWorkspace(r.Context(), req.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.NewWorkspaceViews([]*store.Workspace{ws})[0])
}

func (s *apiServer) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.workspaces.DeleteWorkspace(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.daemon.workspaces.WorkspaceImages(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewImageViews(images))
}

func (s *apiServer) handleAddImages(w http.ResponseWriter, r *http.Request) {
	var req api.AddImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	images, err := s.daemon.workspaces.AddImages(r.Context(), r.PathValue("id"), req.Paths)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.NewImageViews(images))
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []store.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := store.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}
	jobs, err := s.daemon.jobs.ListJobs(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewJobViews(jobs))
}

func (s *apiServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.daemon.jobs.CreateJob(r.Context(), req.WorkspaceID, req.Name, req.Quality, req.Options)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.NewJobView(job))
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewJobView(job))
}

func (s *apiServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.jobs.DeleteJob(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleJobAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var (
		job *store.Job
		err error
	)
	switch action {
	case "pause":
		job, err = s.daemon.jobs.PauseJob(r.Context(), id)
	case "resume":
		job, err = s.daemon.jobs.ResumeJob(r.Context(), id)
	case "cancel":
		job, err = s.daemon.jobs.CancelJob(r.Context(), id)
	default:
		s.writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.NewJobView(job))
}

func (s *apiServer) handleJobResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.daemon.jobs.JobResults(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewResultViews(results))
}

func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig := r.URL.Query().Get("sig")

	if err := s.daemon.jobs.NotifyJob(r.Context(), id, sig); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	var invalid *api.InvalidTransitionError
	switch {
	case errors.Is(err, api.ErrInvalidSignature):
		s.writeError(w, http.StatusForbidden, err.Error())
	case api.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
