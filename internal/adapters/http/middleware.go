package routes

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags every request with an id and logs it after completion
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			w.Header().Set("X-Request-ID", requestID)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			entry := log.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"uri":        r.URL.Path,
				"status":     recorder.status,
				"latency":    time.Since(start),
				"user_agent": r.UserAgent(),
			})

			if recorder.status >= 500 {
				entry.Error("request completed")
			} else {
				entry.Info("request completed")
			}
		})
	}
}
