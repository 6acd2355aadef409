package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayush/jobbid/internal/httpx"
	"github.com/ayush/jobbid/internal/metrics"
	"github.com/ayush/jobbid/internal/models"
)

// CookieConfig controls the attributes of the credential cookie.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// DefaultCookieConfig is a cookie a cross-site frontend can send back.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{Secure: true, SameSite: http.SameSiteNoneMode}
}

// Handler holds the login/logout HTTP handlers.
type Handler struct {
	issuer  *Issuer
	cookie  CookieConfig
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewHandler(issuer *Issuer, cookie CookieConfig, logger *slog.Logger, m *metrics.Collector) *Handler {
	return &Handler{issuer: issuer, cookie: cookie, logger: logger, metrics: m}
}

// Issue signs a credential for the posted identity and sets it as a cookie.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req models.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		httpx.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	cred, err := h.issuer.Issue(models.Identity{Email: email})
	if err != nil {
		h.logger.Error("issue credential", slog.String("error", err.Error()))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.metrics.CredentialIssued()

	http.SetCookie(w, h.newCookie(cred.Token, int(TokenTTL.Seconds())))
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Revoke clears the credential cookie. The issuer also denies the token when
// a denylist is configured. A failed denylist write still clears the cookie
// and answers 503.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.newCookie("", -1))

	if cookie, err := r.Cookie(TokenCookie); err == nil {
		if err := h.issuer.Revoke(r.Context(), cookie.Value); err != nil {
			h.logger.Error("revoke credential", slog.String("error", err.Error()))
			httpx.Error(w, http.StatusServiceUnavailable, "credential could not be revoked")
			return
		}
	}
	h.metrics.CredentialRevoked()

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookie,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
		MaxAge:   maxAge,
	}
}
