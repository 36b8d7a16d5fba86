// Package cfg holds server configuration: flags first, then VITEGUIDE_*
// environment variables, then defaults.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names, "http-port" -> VITEGUIDE_HTTP_PORT.
const EnvPrefix = "VITEGUIDE_"

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort  int
	AdminPort int

	EnablePprof     bool
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string

	EnableTracing bool
	OTLPEndpoint  string
	TraceSample   float64

	EnableContentUpdates bool
	ContentSSMParam      string
	ContentS3Bucket      string
	ContentS3Prefix      string
	ContentSigningKeyARN string
	ContentPollInterval  string

	RenderCacheSize  int
	TrustedProxyHops int
	RateLimitPerSec  float64
	RateLimitBurst   int
}

// Register binds every App field to fs with its default.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.BoolVar(&c.EnableContentUpdates, "enable-content-updates", true, "Poll SSM for new article bundles and hot-swap them")
	fs.StringVar(&c.ContentSSMParam, "content-ssm-param", "/app/viteguide-web/content/stable/bundle-hash", "ssm parameter holding the active bundle sha256")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "s3 bucket holding article bundles")
	fs.StringVar(&c.ContentS3Prefix, "content-s3-prefix", "apps/viteguide-web/content/bundles", "s3 key prefix for article bundles")
	fs.StringVar(&c.ContentSigningKeyARN, "content-signing-key-arn", "", "KMS key ARN for bundle signature verification (empty disables)")
	fs.StringVar(&c.ContentPollInterval, "content-poll-interval", "30s", "how often to poll SSM for a new bundle")

	fs.IntVar(&c.RenderCacheSize, "render-cache-size", 256, "rendered article LRU size (1..65536)")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 1, "reverse proxies in front of the server (0 ignores X-Forwarded-For)")
	fs.Float64Var(&c.RateLimitPerSec, "rate-limit-per-sec", 10, "per-IP request refill rate")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "per-IP request burst")
}

// FillFromEnv sets any flag not passed on the command line from PREFIX_FLAG_NAME.
// Invalid env values are reported through logf and ignored.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		val, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, val)
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, val); err != nil {
			_ = fs.Set(f.Name, prev)
			logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, val, err)
		}
	})
}

// Validate returns every invalid field joined into one error, or nil.
// hasProvenance is true for release builds, which must verify bundle signatures.
func Validate(c App, hasProvenance bool) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		add("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort)
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		add("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort)
	}
	if c.AdminPort == c.HTTPPort {
		add("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		add("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			add("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err)
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		add("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks)
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		add("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample)
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			add("OTLP_ENDPOINT required when ENABLE_TRACING=true")
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			add("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err)
		}
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			add("PYRO_SERVER required when ENABLE_PYROSCOPE=true")
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			add("PYRO_SERVER must be a URL (got %q)", c.PyroServer)
		}
		if c.PyroTenantID == "" {
			add("PYRO_TENANT required when ENABLE_PYROSCOPE=true")
		}
	}

	if c.EnableContentUpdates {
		if c.ContentSSMParam == "" {
			add("CONTENT_SSM_PARAM is required when ENABLE_CONTENT_UPDATES=true")
		}
		if c.ContentS3Bucket == "" {
			add("CONTENT_S3_BUCKET is required when ENABLE_CONTENT_UPDATES=true")
		}
	}
	if _, err := ParsePollInterval(c.ContentPollInterval); err != nil {
		add("invalid CONTENT_POLL_INTERVAL %q: %v", c.ContentPollInterval, err)
	}

	if c.RenderCacheSize < 1 || c.RenderCacheSize > 65536 {
		add("RENDER_CACHE_SIZE must be 1..65536 (got %d)", c.RenderCacheSize)
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 8 {
		add("TRUSTED_PROXY_HOPS must be 0..8 (got %d)", c.TrustedProxyHops)
	}
	if c.RateLimitPerSec <= 0 {
		add("RATE_LIMIT_PER_SEC must be > 0 (got %v)", c.RateLimitPerSec)
	}
	if c.RateLimitBurst < 1 {
		add("RATE_LIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst)
	}

	// release builds fail closed: unsigned bundles are never served
	if hasProvenance && c.EnableContentUpdates && c.ContentSigningKeyARN == "" {
		add("release build requires content-signing-key-arn")
	}

	return errors.Join(errs...)
}

// MinPollInterval keeps the watcher from hammering SSM.
const MinPollInterval = 5 * time.Second

// ParsePollInterval parses a Go duration and enforces MinPollInterval.
func ParsePollInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d < MinPollInterval {
		return 0, fmt.Errorf("must be at least %s", MinPollInterval)
	}
	return d, nil
}
