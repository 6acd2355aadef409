// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayush/jobbid/internal/models"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// StatusOf maps a ledger error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBadReference),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrAttachmentsDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates err into a status and message. Store failures are
// logged and answered with a generic message.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		Error(w, status, "internal error")
		return
	}
	Error(w, status, err.Error())
}

// ScopedEmail resolves the email an owner-scoped listing filters on. An
// empty query means the caller; any other address is refused.
func ScopedEmail(query, caller string) (string, error) {
	if query == "" || query == caller {
		return caller, nil
	}
	return "", models.ErrForbidden
}
