package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/heraldai/herald/errors"
)

// maxBodyBytes caps authoring request bodies. Prompts and payloads are
// small; anything past a megabyte is a client bug, not a bigger job.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error envelope
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message})
}

// readJSON decodes a request body strictly. Unknown fields are
// rejected so a misspelled option surfaces as a 400 instead of being
// silently dropped. Writes the 400 itself when decoding fails.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return err
	}
	return nil
}

// requireMethod checks if the request method matches the expected method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// extractPathParts extracts path segments after removing a prefix
func extractPathParts(urlPath, prefix string) []string {
	return strings.Split(strings.TrimPrefix(urlPath, prefix), "/")
}

// shortID compacts a prefixed ID for log fields, keeping the prefix
// and the head of the random tail: job_0b179ee4.
func shortID(id string) string {
	prefix, tail, ok := strings.Cut(id, "_")
	if !ok || len(tail) <= 8 {
		return id
	}
	return prefix + "_" + tail[:8]
}
