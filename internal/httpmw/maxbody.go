package httpmw

import "net/http"

// DefaultMaxBody caps request bodies on the public listener. No public route
// accepts a body.
const DefaultMaxBody = 64 << 10

// MaxBody wraps the request body in http.MaxBytesReader. Handlers that read
// past n get an error and the client gets 413.
func MaxBody(n int64) Middleware {
	if n <= 0 {
		n = DefaultMaxBody
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
