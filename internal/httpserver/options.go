package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/viteguide-web/internal/health"
	"github.com/keithlinneman/viteguide-web/internal/httpmw"
	"github.com/keithlinneman/viteguide-web/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	UseRecoverMW bool
	OnPanic      func()

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler
	// ClientIPOpts must match the proxies in front of the server; the rate
	// limiter keys on the address it resolves.
	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	// ContentInfo feeds the X-Content-Version and X-Content-Hash headers.
	ContentInfo httpmw.ContentInfo

	// APIRoutes registers JSON endpoints on the public router.
	APIRoutes func(chi.Router)
	// SiteHandler serves everything no other route claims.
	SiteHandler http.Handler

	// MaxBodyBytes defaults to httpmw.DefaultMaxBody.
	MaxBodyBytes int64
}
