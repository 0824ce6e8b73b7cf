package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tahcohcat/gamify-web/internal/progression"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		kind       string
		message    string
		retryAfter string
	}{
		{
			name:       "storage failure",
			err:        progression.Wrap(progression.KindTransientFailure, "progress store is busy", errors.New("database is locked")),
			status:     http.StatusServiceUnavailable,
			kind:       "transient_failure",
			message:    progression.ErrTransientFailure.Message,
			retryAfter: "1",
		},
		{
			name:       "untyped error",
			err:        errors.New("boom"),
			status:     http.StatusServiceUnavailable,
			kind:       "transient_failure",
			message:    progression.ErrTransientFailure.Message,
			retryAfter: "1",
		},
		{
			name:    "already claimed",
			err:     progression.NewError(progression.KindAlreadyCompleted, "Daily quest already claimed today"),
			status:  http.StatusConflict,
			kind:    "already_completed",
			message: "Daily quest already claimed today",
		},
		{
			name:    "corrupt progress",
			err:     progression.NewError(progression.KindInvariantViolation, "stored level 7 does not match level 0 for 50 XP"),
			status:  http.StatusInternalServerError,
			kind:    "invariant_violation",
			message: progression.ErrInvariantViolation.Message,
		},
		{
			name:    "bad amount",
			err:     progression.NewError(progression.KindInvalidAmount, "amount must be a positive whole number"),
			status:  http.StatusBadRequest,
			kind:    "invalid_amount",
			message: "amount must be a positive whole number",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := rec.Header().Get("Retry-After"); got != tc.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tc.retryAfter)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error != tc.kind || body.Message != tc.message {
				t.Errorf("body = %+v", body)
			}
		})
	}
}
