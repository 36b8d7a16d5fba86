// Package opshttp is the admin listener: probes, Prometheus metrics, bundle
// metadata and pprof. It is never exposed through the load balancer.
package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/keithlinneman/viteguide-web/internal/health"
	"github.com/keithlinneman/viteguide-web/internal/httpmw"
	"github.com/keithlinneman/viteguide-web/internal/httpserver"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

const DefaultPort = 9000

// registerPprof mounts the net/http/pprof handlers under /debug/pprof/.
func registerPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// NewHandler builds the admin mux.
func NewHandler(L log.Logger, opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if opts.Content != nil {
		mux.Handle("/-/content", opts.Content)
	}
	if opts.EnablePprof {
		registerPprof(mux)
	} else {
		// shadow the prefix so nothing else is ever served there
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	var h http.Handler = mux
	if opts.UseRecoverMW {
		h = httpmw.Recover(L, opts.OnPanic)(h)
	}
	return h
}

// Start serves the admin handler on opts.Port.
func Start(ctx context.Context, L log.Logger, opts Options) (httpserver.StopFunc, error) {
	if L == nil {
		L = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen for admin port on %s", addr)
	}
	srv := httpserver.NewServer(addr, NewHandler(L, opts))
	// profiles run for up to 30s by default
	srv.WriteTimeout = 0
	return httpserver.Serve(ctx, L, "ops http server", srv, ln), nil
}
