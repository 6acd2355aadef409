package bids

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/jobbid/internal/httpx"
	"github.com/ayush/jobbid/internal/metrics"
	"github.com/ayush/jobbid/internal/middleware"
	"github.com/ayush/jobbid/internal/models"
)

// Handler holds bid HTTP handlers.
type Handler struct {
	ledger  *Ledger
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewHandler(ledger *Ledger, logger *slog.Logger, m *metrics.Collector) *Handler {
	return &Handler{ledger: ledger, logger: logger, metrics: m}
}

// Create submits a bid for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	var bid models.Bid
	if err := json.NewDecoder(r.Body).Decode(&bid); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.ledger.Create(r.Context(), caller, bid)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	h.metrics.BidCreated()
	httpx.WriteJSON(w, http.StatusOK, res)
}

// ListMine returns the caller's bids, sorted by ?sort=asc|desc on status.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	q := r.URL.Query()
	email, err := httpx.ScopedEmail(q.Get("email"), caller.Email)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	views, err := h.ledger.ListByBidder(r.Context(), email, q.Get("sort"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

// ListRequests returns the bids placed on the caller's jobs.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	email, err := httpx.ScopedEmail(r.URL.Query().Get("email"), caller.Email)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	views, err := h.ledger.ListByJobPoster(r.Context(), email)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

// UpdateAsBidder changes the status of one of the caller's bids.
func (h *Handler) UpdateAsBidder(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, models.RoleBidder)
}

// UpdateAsPoster changes the status of a bid on one of the caller's jobs.
func (h *Handler) UpdateAsPoster(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, models.RolePoster)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, role models.Role) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	var req models.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := models.Actor{Email: caller.Email, Role: role}
	res, err := h.ledger.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if res.ModifiedCount > 0 {
		h.metrics.BidStatusChanged(string(req.Status), string(role))
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// History returns the status changes of a bid.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	events, err := h.ledger.History(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}
