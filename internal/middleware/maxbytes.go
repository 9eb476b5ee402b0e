package middleware

import "net/http"

// MaxBytes caps the request body at limit bytes. Reads past the limit fail,
// turning an oversized upload into a handler-level error instead of an
// unbounded transfer.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
