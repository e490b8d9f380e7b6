package api

import (
	"encoding/json"
	"net/http"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/logger"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Kind    apperr.Kind `json:"kind"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, APIError{Kind: kindForStatus(status), Code: code, Message: message})
}

// WriteAppError renders a tagged error. Internal errors are logged with the request id and
// their cause is never exposed.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeEnvelope(w, StatusFor(e.Kind), APIError{Kind: e.Kind, Code: e.Code, Message: e.Message})
}

func writeEnvelope(w http.ResponseWriter, status int, e APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: e})
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusTooManyRequests:
		return apperr.KindRateLimited
	default:
		return apperr.KindInternal
	}
}
