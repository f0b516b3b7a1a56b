package middleware

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/erraggy/oasguard/oaserrors"
)

// HandlerFunc is an HTTP handler that can fail. Validation middleware returns
// raised failures through it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Adapt converts a standard handler. The result never returns an error.
func Adapt(h http.Handler) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}

// ErrorBody is the JSON shape of a substituted error response.
type ErrorBody struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// StatusFor maps an error to the status used when it reaches the edge.
func StatusFor(err error) int {
	var parseErr *oaserrors.ParseError
	switch {
	case errors.Is(err, oaserrors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &parseErr) && parseErr.Source == requestBodySource:
		return http.StatusBadRequest
	case errors.Is(err, oaserrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorID returns the slug used in error bodies.
func ErrorID(err error) string {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	}
	if errors.Is(err, oaserrors.ErrInvalidResponse) || errors.Is(err, oaserrors.ErrParse) {
		return "invalid_response"
	}
	return "internal_server_error"
}

// WriteError writes err as {"id": ..., "message": ...}. A zero status picks
// one from the error kind.
func WriteError(w http.ResponseWriter, status int, err error) {
	if status == 0 {
		status = StatusFor(err)
	}
	body, mErr := json.Marshal(ErrorBody{ID: ErrorID(err), Message: err.Error()})
	if mErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

const (
	requestBodySource  = "request body"
	responseBodySource = "response body"
)
