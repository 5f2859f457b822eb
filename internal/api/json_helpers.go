package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"jukebot/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// WriteResolutionError translates an identity resolution failure into its
// kind-derived HTTP status; unexpected errors collapse to a generic 500 so no
// internal detail leaks to the client.
func WriteResolutionError(w http.ResponseWriter, err error) {
	if resErr, ok := auth.AsError(err); ok {
		writeError(w, resErr.HTTPStatus(), resErr)
		return
	}
	writeError(w, http.StatusInternalServerError, errors.New("identity resolution failed"))
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}
