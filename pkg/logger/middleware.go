package logger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/screwyprof/stakecheck/pkg/httpkit"
)

// statusRecorder remembers the status and body size the handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// NewMiddleware logs one "HTTP" record per request.
// Server errors are logged at error level, everything else at info.
func NewMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// handlers report failures through the tracked context
			r = r.WithContext(httpkit.Track(r.Context()))
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			log.LogAttrs(r.Context(), levelFor(rec.code()), "HTTP", requestAttrs(r, rec, time.Since(start))...)
		})
	}
}

func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

func requestAttrs(r *http.Request, rec *statusRecorder, elapsed time.Duration) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("uri", r.RequestURI),
		slog.String("route", route(r)),
		slog.Int("status", rec.code()),
		slog.Duration("duration", elapsed),
		slog.Int("bytes_in", max(0, int(r.ContentLength))), // -1 when unknown
		slog.Int("bytes_out", rec.written),
	}

	if err := httpkit.Failure(r.Context()); err != nil {
		attrs = append(attrs, slog.String("error", failureMessage(err)))
	}
	return attrs
}

// route returns the matched ServeMux pattern, so requests for different snapshots group together
func route(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// failureMessage prefers the internal cause, which the response body may hide
func failureMessage(err error) string {
	var httpErr httpkit.HTTPError
	if errors.As(err, &httpErr) && httpErr.Cause() != nil {
		return httpErr.Cause().Error()
	}
	return err.Error()
}
