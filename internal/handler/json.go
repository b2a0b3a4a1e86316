package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

var errMalformedBody = errors.New("malformed request body")

// decodeBody fills dest from a JSON body, or from form values keyed by the
// struct's `form` tags when the request is not JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, dest formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(dest)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return nil
	}

	err := r.ParseForm()
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	dest.fromForm(r)
	return nil
}

type formDecoder interface {
	fromForm(r *http.Request)
}
