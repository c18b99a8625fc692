// Package httputil implements the JSON envelope shared by every API handler:
// `{ok, data}` on success, `{ok, error: {code, message}}` on failure, so a
// client can branch on `ok` and on the machine-readable code without parsing
// messages.
package httputil

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// Machine-readable error codes used across the asset API. Codes name the
// condition, not the HTTP status; the replace protocol maps several of them
// onto 4xx statuses of their own.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeLocked          = "locked"
	CodeLimitExceeded   = "limit_exceeded"
	CodeVersionConflict = "version_conflict"
	CodeRateLimited     = "rate_limited"
)

// maxBodyBytes bounds JSON request bodies; uploads go through multipart, so
// anything larger than this in a JSON body is a client bug.
const maxBodyBytes = 1 << 20

type Envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{OK: true, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{OK: false, Error: &APIError{Code: code, Message: message}})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("httputil: encode response: %v", err)
	}
}

// ReadJSON decodes a bounded request body into dst.
func ReadJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}
