package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bmore/mtgateway/internal/batch"
	"github.com/bmore/mtgateway/internal/gateway"
	"github.com/bmore/mtgateway/internal/job"
	"github.com/bmore/mtgateway/internal/provider"
	"github.com/bmore/mtgateway/internal/xliff"
)

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// decodeJSON reads the request body into v and writes the error response
// itself when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps an error from the translation pipeline to a response status.
func statusFor(err error) int {
	var invalid *batch.ValidationError
	switch {
	case errors.As(err, &invalid),
		errors.Is(err, provider.ErrUnsupportedPair),
		errors.Is(err, gateway.ErrEmptyDocument),
		errors.Is(err, xliff.ErrNoSegments):
		return http.StatusBadRequest
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), statusFor(err))
}
