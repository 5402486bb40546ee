package logger

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPRequests logs one line per HTTP request and makes a request scoped
// logger available through zerolog.Ctx.
type HTTPRequests struct {
	logger   zerolog.Logger
	clientIP func(*http.Request) string
}

// NewHTTPRequests creates the middleware. clientIP may be nil, in which case
// the remote address is logged.
func NewHTTPRequests(logger zerolog.Logger, clientIP func(*http.Request) string) *HTTPRequests {
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &HTTPRequests{logger: logger, clientIP: clientIP}
}

func (h *HTTPRequests) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		ctx := h.logger.With().
			Str("protocol", r.Proto).
			Str("addr", h.clientIP(r)).
			Logger().WithContext(r.Context())

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		event := zerolog.Ctx(ctx).Info()
		if status >= http.StatusInternalServerError {
			event = zerolog.Ctx(ctx).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
