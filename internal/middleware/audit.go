package middleware

import (
	"net/http"
	"time"

	"aiinfra/internal/logging"
)

// AuditRecorder receives one entry per audited request.
type AuditRecorder interface {
	Record(entry logging.AuditEntry)
}

// Audit records every state-changing request. It must run inside
// UserJWTMiddleware so the user id is known.
func Audit(recorder AuditRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isReadOnly(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			userID, _ := GetUserID(r.Context())
			recorder.Record(logging.AuditEntry{
				RequestID:  GetRequestID(r.Context()),
				UserID:     userID,
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rec.status,
				DurationMS: time.Since(start).Milliseconds(),
			})
		})
	}
}
