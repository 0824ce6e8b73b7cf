package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tahcohcat/gamify-web/internal/auth"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

// retryAfterSeconds is sent with errors that may succeed when repeated.
const retryAfterSeconds = "1"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.New().WithError(err).Warn("Failed to write response")
	}
}

func writeErrorKind(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: kind, Message: message})
}

// writeError maps err onto its progression kind. Storage details are not
// sent to clients.
func writeError(w http.ResponseWriter, err error) {
	kind := progression.KindOf(err)
	message := err.Error()

	var perr *progression.Error
	switch {
	case kind == progression.KindTransientFailure:
		message = progression.ErrTransientFailure.Message
	case kind == progression.KindInvariantViolation:
		message = progression.ErrInvariantViolation.Message
	case errors.As(err, &perr):
		message = perr.Message
	}
	if kind.Retryable() {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeErrorKind(w, kind.HTTPStatus(), string(kind), message)
}

// requireUser returns the resolved user or an unauthenticated error.
func requireUser(r *http.Request) (int, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, progression.ErrUnauthenticated
	}
	return id, nil
}
