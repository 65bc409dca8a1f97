package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	authsystem "github.com/MrEthical07/authsystem"
)

// envelope is the body of every account route.
type envelope struct {
	authsystem.Result
	Errors []string `json:"errors,omitempty"`
}

const (
	msgInvalidBody    = "Request body must be valid JSON."
	msgInvalidRequest = "Request validation failed."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, res authsystem.Result, errs []string) {
	writeJSON(w, status, envelope{Result: res, Errors: errs})
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, authsystem.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, authsystem.ErrUnauthorized),
		errors.Is(err, authsystem.ErrInvalidCredentials),
		errors.Is(err, authsystem.ErrEmailNotConfirmed):
		return http.StatusUnauthorized
	case errors.Is(err, authsystem.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authsystem.ErrAlreadyConfirmed):
		return http.StatusOK
	case errors.Is(err, authsystem.ErrEmailTaken),
		errors.Is(err, authsystem.ErrWeakPassword),
		errors.Is(err, authsystem.ErrInvalidToken),
		errors.Is(err, authsystem.ErrExpiredToken),
		errors.Is(err, authsystem.ErrInvalidName),
		errors.Is(err, authsystem.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and runs its validation rules. On failure
// it writes the 400 envelope and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeEnvelope(w, http.StatusBadRequest,
			authsystem.Result{Message: msgInvalidBody},
			[]string{fmt.Sprintf("body: %v", err)})
		return false
	}
	if err := dst.Validate(); err != nil {
		writeEnvelope(w, http.StatusBadRequest,
			authsystem.Result{Message: msgInvalidRequest},
			fieldErrors(err))
		return false
	}
	return true
}
