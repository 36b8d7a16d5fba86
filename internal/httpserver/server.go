// Package httpserver builds and runs the public article listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/viteguide-web/internal/health"
	"github.com/keithlinneman/viteguide-web/internal/httpmw"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// Timeouts shared with opshttp.
const (
	DefaultPort              = 8080
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultShutdownTimeout   = 5 * time.Second
)

// compressible lists the response types chi gzips.
var compressible = []string{
	"text/html",
	"text/css",
	"text/plain",
	"text/markdown",
	"application/javascript",
	"text/javascript",
	"application/json",
	"image/svg+xml",
}

var untracedPaths = map[string]bool{
	"/favicon.ico": true,
	"/robots.txt":  true,
	"/-/healthy":   true,
	"/-/ready":     true,
}

var untracedExt = map[string]bool{
	".css": true, ".js": true, ".map": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".svg": true, ".ico": true, ".woff": true, ".woff2": true,
}

// shouldTrace keeps probes and static assets out of traces.
func shouldTrace(p string) bool {
	return !untracedPaths[p] && !untracedExt[strings.ToLower(path.Ext(p))]
}

// NewHandler builds the public router and wraps it in the middleware stack.
// main owns the *http.Server so it controls graceful shutdown.
func NewHandler(opts *Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Compress(5, compressible...))
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(opts.MaxBodyBytes))

	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}
	if opts.APIRoutes != nil {
		opts.APIRoutes(r)
	}
	if opts.SiteHandler != nil {
		r.Mount("/", opts.SiteHandler)
	}

	// outermost first
	return httpmw.Chain(r,
		httpmw.SecurityHeaders,
		recoverMW(opts),
		httpmw.RequestID(httpmw.HeaderRequestID),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		tracing,
		httpmw.ContentHeaders(opts.ContentInfo),
		httpmw.TraceResponseHeaders("", ""),
		opts.MetricsMW,
		httpmw.WithLogger(opts.Logger),
	)
}

func recoverMW(opts *Options) httpmw.Middleware {
	if !opts.UseRecoverMW {
		return nil
	}
	return httpmw.Recover(opts.Logger, opts.OnPanic)
}

// tracing starts the server span. AnnotateHTTPRoute renames it to the chi
// pattern once routing is done.
func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return shouldTrace(r.URL.Path) }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method }),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// NewServer applies the default timeouts to handler.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// StopFunc gracefully shuts a listener down. Calls after the first are no-ops.
type StopFunc func(context.Context) error

// Serve runs srv on ln in the background and returns its StopFunc.
func Serve(ctx context.Context, L log.Logger, name string, srv *http.Server, ln net.Listener) StopFunc {
	go func() {
		L.Info(ctx, name+" listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, name+" error")
		}
	}()

	var once sync.Once
	var stopErr error
	return func(sctx context.Context) error {
		once.Do(func() {
			L.Info(sctx, name+" shutting down")
			c, cancel := context.WithTimeout(sctx, DefaultShutdownTimeout)
			defer cancel()
			stopErr = srv.Shutdown(c)
		})
		return stopErr
	}
}

// Start listens on opts.Port and serves the public handler.
func Start(ctx context.Context, opts *Options) (StopFunc, error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	handler := NewHandler(opts)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen on %s", addr)
	}
	return Serve(ctx, opts.Logger, "http server", NewServer(addr, handler), ln), nil
}
