package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/plantcare/internal/handlers"
	"github.com/HammerMeetNail/plantcare/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// responseRecorder wraps http.ResponseWriter to capture status code and size.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Flush keeps server-sent events working through the wrapper.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger logs HTTP requests with timing information and puts a
// request-scoped logger into the context.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger}
}

func (l *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := l.logger.WithField("request_id", requestID)
		r = r.WithContext(logging.WithContext(r.Context(), reqLogger))

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.statusCode,
			"size":        recorder.size,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": GetClientIP(r),
			"user_agent":  r.UserAgent(),
		}
		if r.URL.RawQuery != "" {
			fields["query"] = r.URL.RawQuery
		}

		switch {
		case recorder.statusCode >= 500:
			reqLogger.Error("HTTP request", fields)
		case recorder.statusCode >= 400:
			reqLogger.Warn("HTTP request", fields)
		default:
			reqLogger.Info("HTTP request", fields)
		}
	})
}

// SessionLogger tags the request logger with the session id. It must run
// inside both RequestLogger and SessionMiddleware.
func SessionLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := handlers.GetSessionIDFromContext(r.Context()); id != "" {
			logger := logging.FromContext(r.Context()).WithField("session_id", id)
			r = r.WithContext(logging.WithContext(r.Context(), logger))
		}
		next.ServeHTTP(w, r)
	})
}
