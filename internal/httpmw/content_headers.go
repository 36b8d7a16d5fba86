package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderContentVersion = "X-Content-Version"
	HeaderContentHash    = "X-Content-Hash"

	shortHashLen = 12
)

// ContentInfo reports the active article bundle. content.Manager satisfies it.
type ContentInfo interface {
	ContentVersion() string
	ContentHash() string
}

// ContentHeaders stamps each response with the bundle version and a short
// hash, and records both on the request span. It reads info per request so
// a hot-swapped bundle shows up immediately.
func ContentHeaders(info ContentInfo) Middleware {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ContentVersion(), info.ContentHash()
			if v != "" {
				w.Header().Set(HeaderContentVersion, v)
			}
			if h != "" {
				short := h
				if len(short) > shortHashLen {
					short = short[:shortHashLen]
				}
				w.Header().Set(HeaderContentHash, short)
			}

			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				if v != "" {
					span.SetAttributes(attribute.String("content.version", v))
				}
				if h != "" {
					span.SetAttributes(attribute.String("content.hash", h))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
