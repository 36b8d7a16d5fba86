package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/viteguide-web/internal/log"
)

const tracerName = "viteguide/httpmw"

// accessWriter records status and size, and opens a "response.write" child
// span on the first byte so time-to-first-byte and write blocking show up in
// traces.
type accessWriter struct {
	http.ResponseWriter
	ctx   context.Context
	start time.Time

	status  int
	bytes   int64
	blocked time.Duration
	err     error

	span    trace.Span
	started bool
}

func (aw *accessWriter) begin() {
	if aw.started {
		return
	}
	aw.started = true
	if !trace.SpanFromContext(aw.ctx).IsRecording() {
		return
	}
	ttfb := time.Since(aw.start)
	_, aw.span = otel.Tracer(tracerName).Start(aw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", ttfb.Seconds())))
}

func (aw *accessWriter) end() {
	if aw.span == nil {
		return
	}
	aw.span.SetAttributes(
		attribute.Int("http.response.status_code", aw.statusCode()),
		attribute.Int64("http.response.body.size", aw.bytes),
		attribute.Float64("http.server.write.block_seconds", aw.blocked.Seconds()),
	)
	if aw.err != nil {
		aw.span.RecordError(aw.err)
		aw.span.SetStatus(codes.Error, aw.err.Error())
	}
	aw.span.End()
}

func (aw *accessWriter) statusCode() int {
	if aw.status == 0 {
		return http.StatusOK
	}
	return aw.status
}

func (aw *accessWriter) WriteHeader(code int) {
	aw.begin()
	if aw.status == 0 {
		aw.status = code
	}
	t := time.Now()
	aw.ResponseWriter.WriteHeader(code)
	aw.blocked += time.Since(t)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	aw.begin()
	if aw.status == 0 {
		aw.status = http.StatusOK
	}
	t := time.Now()
	n, err := aw.ResponseWriter.Write(b)
	aw.blocked += time.Since(t)
	aw.bytes += int64(n)
	if err != nil && aw.err == nil {
		aw.err = err
	}
	return n, err
}

func (aw *accessWriter) Flush() {
	if f, ok := aw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (aw *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := aw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpmw: underlying ResponseWriter is not a Hijacker")
	}
	return h.Hijack()
}

func (aw *accessWriter) Unwrap() http.ResponseWriter { return aw.ResponseWriter }

// WithLogger stores a request-scoped logger carrying the request ID, client
// address, method and path. It must run after RequestID and ClientIP.
func WithLogger(base log.Logger) Middleware {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)
			client := ClientIPFromContext(ctx)
			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			if client == "" {
				client = peer
			}
			scheme := requestScheme(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("network.peer.address", peer),
					attribute.String("url.scheme", scheme),
				)
			}

			fields := []any{
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			}
			if q := r.URL.RawQuery; q != "" {
				fields = append(fields, "url.query", q)
			}
			ctx = log.WithContext(ctx, base.With(fields...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// quietPaths are probed constantly and never logged.
var quietPaths = map[string]bool{
	"/-/healthy": true,
	"/-/ready":   true,
}

// staticExt lists asset extensions left out of the access log.
var staticExt = map[string]bool{
	".css": true, ".js": true, ".map": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".svg": true, ".ico": true, ".woff": true, ".woff2": true,
}

// AccessLog writes one "http request" line per request through the logger
// WithLogger stored, at warn for 5xx and info otherwise.
func AccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = withRouteContext(r)
			aw := &accessWriter{ResponseWriter: w, ctx: r.Context(), start: start}

			next.ServeHTTP(aw, r)
			aw.end()

			if quietPaths[r.URL.Path] || staticExt[strings.ToLower(path.Ext(r.URL.Path))] {
				return
			}
			route := RoutePattern(r)
			if route == "" {
				route = "unmatched"
			}
			var reqSize int64
			if r.ContentLength > 0 {
				reqSize = r.ContentLength
			}

			ctx := r.Context()
			L := log.FromContext(ctx)
			kv := []any{
				"http.response.status_code", aw.statusCode(),
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", aw.bytes,
				"http.request.body.size", reqSize,
				"http.route", route,
			}
			if aw.statusCode() >= 500 {
				L.Warn(ctx, "http request", kv...)
				return
			}
			L.Info(ctx, "http request", kv...)
		})
	}
}

// requestScheme prefers X-Forwarded-Proto. ClientIPWithOptions strips that
// header from untrusted peers before this runs.
func requestScheme(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		switch s := strings.ToLower(strings.TrimSpace(first)); s {
		case "http", "https":
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with the handler name.
func Scope(handler string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
