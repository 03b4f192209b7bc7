package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sayonsom/workpal/internal/gateway"
)

// WriteGatewayError maps the gateway error taxonomy onto an HTTP
// response: session expiry becomes a 401 prompting re-login, typed
// backend errors keep their status and message, and anything else is a
// generic 502.
func WriteGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, gateway.ErrSessionExpired) {
		Error(w, http.StatusUnauthorized, "Session expired, please log in again.")
		return
	}
	if apiErr, ok := gateway.AsAPIError(err); ok {
		Error(w, apiErr.Status, apiErr.Message)
		return
	}
	slog.Error("Backend call failed", "error", err)
	Error(w, http.StatusBadGateway, "Upstream service unavailable.")
}
