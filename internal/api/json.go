package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/validation"
)

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON body into dst and runs struct tag validation on it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("VALIDATION_FAILED", "request body is required")
		}
		return apperr.Validation("VALIDATION_FAILED", "invalid json: "+err.Error())
	}
	return validation.Struct(dst)
}
