package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	erp "github.com/eugener/silverbook/internal"
)

// maxBody is the maximum allowed request body size (1 MB).
const maxBody = 1 << 20

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg, typ string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = typ
	return e
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, erp.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, erp.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, erp.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, erp.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures in full and returns a sanitized
// message so backend details (SQL, upstream bodies) never reach the client.
// Validation messages are ours and are passed through.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusBadRequest:
		writeJSON(w, status, errorResponse(err.Error(), "invalid_request_error"))
	case http.StatusNotFound:
		writeJSON(w, status, errorResponse("not found", "not_found_error"))
	case http.StatusConflict:
		writeJSON(w, status, errorResponse("conflict", "conflict_error"))
	default:
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", erp.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		msg := "internal error"
		if status == http.StatusBadGateway {
			msg = "backend unavailable"
		}
		writeJSON(w, status, errorResponse(msg, "api_error"))
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// avoids the []string{v} alloc that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON limits body size, decodes JSON into v, and writes a 400 on error.
// Returns true if decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body", "invalid_request_error"))
		return false
	}
	return true
}

// respond writes v with status, or the error if err is non-nil.
func respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

// noContent writes 204, or the error if err is non-nil.
func noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathParam returns the unescaped chi URL parameter name.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// period reads the optional start and end query parameters.
func period(r *http.Request) erp.Period {
	q := r.URL.Query()
	return erp.Period{Start: q.Get("start"), End: q.Get("end")}
}
