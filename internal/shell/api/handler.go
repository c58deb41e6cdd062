// Package api provides HTTP handlers for the Unified Deployment Gateway.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unideploy/unideploy/internal/core/compose"
	"github.com/unideploy/unideploy/internal/core/domain"
	"github.com/unideploy/unideploy/internal/shell/artifact"
	"github.com/unideploy/unideploy/internal/shell/metrics"
	"github.com/unideploy/unideploy/internal/shell/store"
)

// DefaultMaxUploadBytes caps the size of one uploaded archive.
const DefaultMaxUploadBytes = 256 << 20 // 256 MB

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// CodeIssuer exposes the active deploy code for display.
type CodeIssuer interface {
	GenerateOrGet(ctx context.Context) (string, error)
}

// Executor runs one deployment saga.
type Executor interface {
	Execute(ctx context.Context, req *domain.DeploymentRequest, art *artifact.Artifact) (*domain.Project, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the gateway API.
type Handler struct {
	codes          CodeIssuer
	saga           Executor
	staging        *artifact.Staging
	journal        store.Store
	codeStore      Pinger
	metrics        *metrics.Metrics
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerConfig wires the handler's collaborators. Journal, CodeStore and
// Metrics are optional.
type HandlerConfig struct {
	Codes          CodeIssuer
	Saga           Executor
	Staging        *artifact.Staging
	Journal        store.Store
	CodeStore      Pinger
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	MaxUploadBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		codes:          cfg.Codes,
		saga:           cfg.Saga,
		staging:        cfg.Staging,
		journal:        cfg.Journal,
		codeStore:      cfg.CodeStore,
		metrics:        cfg.Metrics,
		logger:         logger,
		maxUploadBytes: maxUpload,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestIDHeader)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/unified-deploy", h.handleUnifiedDeploy)
	r.Get("/deploy-code", h.handleDeployCode)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/deployments/recent", h.handleRecentDeployments)
	})

	return r
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	if h.journal != nil {
		if err := h.journal.Ping(r.Context()); err != nil {
			checks["journal"] = "failed"
			ready = false
		} else {
			checks["journal"] = "ok"
		}
	}

	if h.codeStore != nil {
		if err := h.codeStore.Ping(r.Context()); err != nil {
			checks["code_store"] = "failed"
			ready = false
		} else {
			checks["code_store"] = "ok"
		}
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// =============================================================================
// Deploy Code Handler
// =============================================================================

// handleDeployCode returns the currently active deploy code, issuing one if
// needed, for display to a human or tool.
func (h *Handler) handleDeployCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.GenerateOrGet(r.Context())
	if err != nil {
		h.logger.Error("failed to issue deploy code", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to issue deploy code", "internal_error")
		return
	}
	if h.metrics != nil {
		h.metrics.CodesIssued.Inc()
	}
	h.writeJSON(w, http.StatusOK, DeployCodeResponse{DeployCode: code})
}

// =============================================================================
// Unified Deploy Handler
// =============================================================================

func (h *Handler) handleUnifiedDeploy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form", "validation_error")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, badReq := h.parseDeployRequest(r)
	if badReq != "" {
		h.writeError(w, http.StatusBadRequest, badReq, "validation_error")
		return
	}

	// The archive is stashed before the saga runs; the saga owns its
	// lifecycle from here on.
	art, badReq := h.stashUpload(r)
	if badReq != "" {
		h.writeError(w, http.StatusBadRequest, badReq, "validation_error")
		return
	}

	// The archive must contain a parseable compose file at compose_path.
	if msg := h.verifyCompose(art, req.ComposePath); msg != "" {
		h.staging.Remove(art.TempPath)
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	project, err := h.saga.Execute(r.Context(), req, art)
	if err != nil {
		h.writeSagaError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, project)
}

// parseDeployRequest validates the form fields into a DeploymentRequest.
// A non-empty return message means BadRequest.
func (h *Handler) parseDeployRequest(r *http.Request) (*domain.DeploymentRequest, string) {
	ram, err := strconv.Atoi(r.FormValue("ram"))
	if err != nil {
		return nil, "ram must be an integer"
	}
	cpu, err := strconv.Atoi(r.FormValue("cpu"))
	if err != nil {
		return nil, "cpu must be an integer"
	}
	disk, err := strconv.Atoi(r.FormValue("disk"))
	if err != nil {
		return nil, "disk must be an integer"
	}

	var redirects []domain.RedirectSpec
	if raw := r.FormValue("redirects"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &redirects); err != nil {
			return nil, "redirects must be a JSON array of {port, domain, prefix}"
		}
	}
	var env []domain.EnvVar
	if raw := r.FormValue("env"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, "env must be a JSON array of {key, value, isSecret}"
		}
	}

	req, err := domain.NewDeploymentRequest(
		r.FormValue("deploy_code"),
		ram, cpu, disk,
		r.FormValue("compose_path"),
		redirects, env,
	)
	if err != nil {
		var dErr *domain.Error
		if errors.As(err, &dErr) {
			return nil, dErr.Message
		}
		return nil, "invalid request"
	}
	return req, ""
}

// stashUpload moves the uploaded archive into the staging directory.
func (h *Handler) stashUpload(r *http.Request) (*artifact.Artifact, string) {
	file, header, err := r.FormFile("code")
	if err != nil {
		return nil, "archive required"
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" && strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		mimeType = "application/zip"
	}

	art, err := h.staging.Stash(file, mimeType)
	if err != nil {
		if errors.Is(err, artifact.ErrUnsupportedType) {
			return nil, "archive must be a zip file"
		}
		h.logger.Error("failed to stash upload", "error", err)
		return nil, "failed to store upload"
	}
	return art, ""
}

// verifyCompose checks the archive holds a valid compose file at composePath.
func (h *Handler) verifyCompose(art *artifact.Artifact, composePath string) string {
	content, err := h.staging.ReadEntry(art, composePath)
	if err != nil {
		if errors.Is(err, artifact.ErrEntryNotFound) {
			return "compose file not found in archive: " + composePath
		}
		return "archive is not a readable zip file"
	}
	if err := compose.VerifySpec(content); err != nil {
		return "invalid compose file: " + err.Error()
	}
	return ""
}

// =============================================================================
// Journal Handler
// =============================================================================

func (h *Handler) handleRecentDeployments(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeJSON(w, http.StatusOK, JournalResponse{Entries: []JournalEntryResponse{}})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	entries, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list journal entries", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deployments", "internal_error")
		return
	}

	resp := JournalResponse{Entries: make([]JournalEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, JournalEntryResponse{
			SagaID:    e.SagaID,
			ProjectID: e.ProjectID,
			Stage:     e.Stage,
			Status:    string(e.Status),
			Error:     e.Error,
			CreatedAt: e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Response Helpers
// =============================================================================

// writeSagaError maps the error taxonomy to HTTP. 4xx responses carry the
// specific message; 5xx responses stay generic, with full detail logged
// server-side only.
func (h *Handler) writeSagaError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := "deployment failed"
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		message = dErr.Message
	}

	switch kind {
	case domain.KindUnauthorized:
		h.writeError(w, http.StatusUnauthorized, message, "unauthorized")
	case domain.KindBadRequest:
		h.writeError(w, http.StatusBadRequest, message, "validation_error")
	case domain.KindNotFound:
		h.writeError(w, http.StatusNotFound, message, "not_found")
	case domain.KindUpstream:
		h.logger.Error("upstream failure", "error", err)
		h.writeError(w, http.StatusBadGateway, "deployment failed", "upstream_error")
	default:
		h.logger.Error("internal failure", "error", err)
		h.writeError(w, http.StatusInternalServerError, "deployment failed", "internal_error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
