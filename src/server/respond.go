package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("response_encode_failed")
	}
}

// writeError maps err to spec.md §7's HTTP status and error envelope. A
// RATE_LIMIT_ERROR carries its retry hint in Details["retry_after_seconds"]
// (set by apperr.NewRateLimit), surfaced here as the Retry-After header.
func writeError(w http.ResponseWriter, err *apperr.Error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusTooManyRequests {
		if secs, ok := err.Details["retry_after_seconds"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(err.ToDict()); encErr != nil {
		logger.WithError(encErr).Error("response_encode_failed")
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := apperr.NewClient("UNAUTHORIZED", "missing or invalid bearer token", nil).ToDict()
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		logger.WithError(encErr).Error("response_encode_failed")
	}
}

func clientMisconfigured() *apperr.Error {
	return apperr.NewServer(apperr.CodeInternalError, "server is missing its bearer token configuration", nil)
}
