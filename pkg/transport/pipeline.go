package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/bookstore/pkg/api"
)

// Stage is one step before a route handler. It returns the request to pass
// on (possibly carrying a derived context) or an error that ends the
// pipeline. A nil request with a nil error passes the input through.
type Stage func(*http.Request) (*http.Request, error)

// HandlerFunc is a route handler that reports failures instead of writing
// them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Pipeline runs stages in order and then h. The first error, from a stage or
// from h, is passed to eh and nothing else runs.
func Pipeline(eh *ErrorHandler, h HandlerFunc, stages ...Stage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, stage := range stages {
			next, err := stage(r)
			if err != nil {
				eh.Handle(w, r, err)
				return
			}
			if next != nil {
				r = next
			}
		}
		if err := h(w, r); err != nil {
			eh.Handle(w, r, err)
		}
	})
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the standard success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, api.NewSuccess(message, data))
}
