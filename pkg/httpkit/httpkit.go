// Package httpkit holds the response plumbing shared by JSON handlers
package httpkit

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPError is an error that knows its status and keeps its cause for the logs
type HTTPError interface {
	error
	HTTPCode() int
	Cause() error
}

// CachePolicy is the Cache-Control value a response is served with
type CachePolicy string

const (
	// CacheForever suits responses that never change once they exist
	CacheForever CachePolicy = "public, max-age=31536000, immutable"
	// Revalidate makes clients check back on every request
	Revalidate CachePolicy = "no-cache"
)

const jsonContentType = "application/json; charset=utf-8"

type failureKey struct{}

// failure is where a handler leaves its error for the access log
type failure struct {
	err error
}

// Track returns a context that can carry a handler failure.
// A context that already can is returned unchanged.
func Track(ctx context.Context) context.Context {
	if _, ok := ctx.Value(failureKey{}).(*failure); ok {
		return ctx
	}
	return context.WithValue(ctx, failureKey{}, &failure{})
}

// Failure returns the error a handler reported on a tracked context
func Failure(ctx context.Context) error {
	if f, ok := ctx.Value(failureKey{}).(*failure); ok {
		return f.err
	}
	return nil
}

func report(ctx context.Context, err error) {
	if f, ok := ctx.Value(failureKey{}).(*failure); ok {
		f.err = err
	}
}

// HandlerFunc picks the response for a request; the returned handler writes it
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(Track(r.Context()))

	if respond := h(w, r); respond != nil {
		respond(w, r)
	}
}

// Cached serves next under policy unless next has already chosen one
func Cached(policy CachePolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setDefault(w.Header(), "Cache-Control", string(policy))
		next(w, r)
	}
}

// JSON responds 200 with data encoded as JSON
func JSON(data any) http.HandlerFunc {
	return writeJSON(http.StatusOK, data)
}

// Problem reports err to the access log and responds with its status and JSON body
func Problem(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report(r.Context(), err)
		writeJSON(err.HTTPCode(), err)(w, r)
	}
}

func writeJSON(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		setDefault(h, "Content-Type", jsonContentType)
		setDefault(h, "X-Content-Type-Options", "nosniff")

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}
