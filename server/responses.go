package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// JSONResponse is the envelope returned by every API endpoint.
type JSONResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is returned on every failure path.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError maps the internal error taxonomy onto stable HTTP statuses:
// format-invalid is a client error, expired/revoked/rejected are
// unauthorized, provider-unavailable is a retryable service-unavailable.
func writeError(w http.ResponseWriter, err error) {
	ae, ok := autherr.AsError(err)
	if !ok {
		log.Error().Err(err).Msg("unexpected error crossed the facade boundary")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(autherr.KindUnknownProvider),
			Message: "internal error",
		})
		return
	}

	status := statusForKind(ae.Kind)
	if ae.Retryable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, ErrorResponse{
		Error:     string(ae.Kind),
		Message:   ae.Message,
		Retryable: ae.Retryable,
	})
}

func statusForKind(kind autherr.Kind) int {
	switch kind {
	case autherr.KindInvalidCredentialFormat:
		return http.StatusBadRequest
	case autherr.KindProviderAuthRejected, autherr.KindSessionExpired,
		autherr.KindSessionRevoked, autherr.KindSessionBindFailed:
		return http.StatusUnauthorized
	case autherr.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	case autherr.KindUnknownProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
