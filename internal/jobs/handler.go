package jobs

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/jobbid/internal/httpx"
	"github.com/ayush/jobbid/internal/metrics"
	"github.com/ayush/jobbid/internal/middleware"
	"github.com/ayush/jobbid/internal/models"
)

// MaxBriefSize caps an uploaded job brief.
const MaxBriefSize = 10 << 20

// Handler holds job HTTP handlers.
type Handler struct {
	ledger  *Ledger
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewHandler(ledger *Ledger, logger *slog.Logger, m *metrics.Collector) *Handler {
	return &Handler{ledger: ledger, logger: logger, metrics: m}
}

// List returns every job.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.ledger.ListAll(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, jobs)
}

// Get returns a single job.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

// Create posts a new job for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	var job models.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.ledger.Create(r.Context(), caller, job)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	h.metrics.JobCreated()
	httpx.WriteJSON(w, http.StatusOK, res)
}

// ListMine returns the jobs posted by ?email=, which must be the caller.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	email, err := httpx.ScopedEmail(r.URL.Query().Get("email"), caller.Email)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	jobs, err := h.ledger.ListByEmployer(r.Context(), email)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, jobs)
}

// Replace overwrites the negotiable fields of a job (upsert).
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	var req models.EditJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.ledger.Replace(r.Context(), caller, chi.URLParam(r, "id"), req.UpdateJob)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Delete removes one of the caller's jobs.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	res, err := h.ledger.Delete(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// UploadBrief stores the request body as the job's brief.
func (h *Handler) UploadBrief(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	if r.ContentLength > MaxBriefSize {
		httpx.Error(w, http.StatusRequestEntityTooLarge, "brief too large")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := http.MaxBytesReader(w, r.Body, MaxBriefSize)
	job, err := h.ledger.AttachBrief(r.Context(), caller, chi.URLParam(r, "id"), body, r.ContentLength, contentType)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

// DownloadBrief streams the job's brief.
func (h *Handler) DownloadBrief(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.ledger.Brief(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=brief")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream brief", slog.String("error", err.Error()))
	}
}
