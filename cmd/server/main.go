package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/viteguide-web/internal/articlehttp"
	"github.com/keithlinneman/viteguide-web/internal/cfg"
	"github.com/keithlinneman/viteguide-web/internal/content"
	"github.com/keithlinneman/viteguide-web/internal/cryptoutil"
	"github.com/keithlinneman/viteguide-web/internal/health"
	"github.com/keithlinneman/viteguide-web/internal/httpmw"
	"github.com/keithlinneman/viteguide-web/internal/httpserver"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/metrics"
	"github.com/keithlinneman/viteguide-web/internal/opshttp"
	"github.com/keithlinneman/viteguide-web/internal/otelx"
	"github.com/keithlinneman/viteguide-web/internal/prof"
	"github.com/keithlinneman/viteguide-web/internal/ratelimit"
	"github.com/keithlinneman/viteguide-web/internal/render"
	"github.com/keithlinneman/viteguide-web/internal/sitehandler"
	v "github.com/keithlinneman/viteguide-web/internal/version"
	"github.com/keithlinneman/viteguide-web/internal/webassets"
)

const (
	// time between failing readiness and closing listeners, long enough for
	// two load balancer health check intervals
	drainPeriod     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()
	hasProvenance := vi.HasProvenance()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf, hasProvenance); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lg, err := newLogger(conf, vi)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"release_id", vi.ReleaseId,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"enable_content_updates", conf.EnableContentUpdates,
		"content_ssm_param", conf.ContentSSMParam,
		"content_s3_bucket", conf.ContentS3Bucket,
		"content_s3_prefix", conf.ContentS3Prefix,
		"content_signing_key_arn", conf.ContentSigningKeyARN,
		"render_cache_size", conf.RenderCacheSize,
		"trusted_proxy_hops", conf.TrustedProxyHops,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", &vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
		stopProf = func() {}
	}

	// the collector is a sidecar on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
		Release:   vi.ReleaseId,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}

	renderer, err := render.New(render.Options{
		Logger:    L,
		CacheSize: conf.RenderCacheSize,
		Metrics:   m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create renderer")
		os.Exit(1)
	}

	contentMgr := content.NewManager()
	if err := loadSeed(contentMgr); err != nil {
		L.Warn(ctx, "seed content not loaded", "error", err)
	} else {
		L.Info(ctx, "loaded seed content", "content_hash", contentMgr.ContentHash())
	}

	loader := newLoader(ctx, L, conf)
	if loader != nil {
		if err := loader.LoadIntoManager(ctx, contentMgr, content.DefaultValidationOptions()); err != nil {
			L.Error(ctx, err, "failed to load content bundle, serving seed")
		} else {
			L.Info(ctx, "loaded content bundle",
				"content_version", contentMgr.ContentVersion(),
				"content_hash", contentMgr.ContentHash(),
			)
		}
	}
	publishContentMetrics(m, contentMgr)

	if loader != nil && conf.EnableContentUpdates {
		// Validate already rejected a bad interval
		interval, _ := cfg.ParsePollInterval(conf.ContentPollInterval)
		watcher := content.NewWatcher(content.WatcherOptions{
			Logger:       L,
			Loader:       loader,
			Manager:      contentMgr,
			PollInterval: interval,
			Metrics:      m,
			OnSwap: func(content.Meta) {
				renderer.Purge()
				publishContentMetrics(m, contentMgr)
			},
		})
		go func() { _ = watcher.Run(ctx) }()
	}

	siteHandler, err := newSiteHandler(L, contentMgr, renderer, m)
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}
	api := articlehttp.NewAPI(contentMgr, renderer, L)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), health.Ready(contentMgr))

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitPerSec, conf.RateLimitBurst),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
		// logged once per visitor until it ages out of the table
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "client.address", ip)
		}),
		ratelimit.WithOnCapacity(m.IncRateLimitCapacity),
	)

	siteStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		ContentInfo:  contentMgr,
		APIRoutes:    api.RegisterRoutes,
		SiteHandler:  siteHandler,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}

	// the admin port is reachable only from the monitoring network
	opsStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		Content:      http.HandlerFunc(api.HandleContent),
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		_ = siteStop(context.Background())
		os.Exit(1)
	}

	if err := notifySystemd(); err != nil {
		// systemd kills us after its start timeout if this really mattered
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	<-ctx.Done()
	stop()
	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Close("draining")
	L.Info(bg, "shutdown gate closed, draining", "drain_period", drainPeriod.String())
	drain(bg, L, drainPeriod)

	shutdownCtx, cancel := context.WithTimeout(bg, shutdownTimeout)
	defer cancel()
	if err := siteStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

func newLogger(conf cfg.App, vi v.Info) (log.Logger, error) {
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := log.Options{
		App:               vi.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Level:             lvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	}
	if conf.StacktraceLevel != "" {
		if opts.StacktraceLevel, err = log.ParseLevel(conf.StacktraceLevel); err != nil {
			return nil, err
		}
	}
	return log.New(opts)
}

// loadSeed publishes the embedded bundle so the site serves articles before
// the first S3 load finishes, or when S3 is unreachable.
func loadSeed(mgr *content.Manager) error {
	fsys, ok := webassets.SeedFS()
	if !ok {
		return fmt.Errorf("no embedded seed bundle")
	}
	hash, err := webassets.Digest(fsys)
	if err != nil {
		return err
	}
	snap, err := content.OpenFS(fsys, hash, content.SourceSeed)
	if err != nil {
		return err
	}
	if err := content.ValidateSnapshot(snap, content.DefaultValidationOptions()); err != nil {
		return err
	}
	mgr.Set(*snap)
	return nil
}

func newSiteHandler(L log.Logger, mgr *content.Manager, r *render.Renderer, views sitehandler.ViewCounter) (*sitehandler.Handler, error) {
	return sitehandler.New(&sitehandler.Options{
		Logger:     L,
		Content:    mgr,
		Renderer:   r,
		Views:      views,
		FallbackFS: webassets.FallbackFS(),
	})
}

// newLoader returns nil when no bucket is configured, which leaves the seed
// as the only content.
func newLoader(ctx context.Context, L log.Logger, conf cfg.App) *content.Loader {
	if conf.ContentS3Bucket == "" {
		L.Info(ctx, "no content bucket configured, serving seed content only")
		return nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		L.Error(ctx, err, "failed to load AWS config, serving seed content only")
		return nil
	}

	opts := content.LoaderOptions{
		Logger:    L,
		SSMParam:  conf.ContentSSMParam,
		S3Bucket:  conf.ContentS3Bucket,
		S3Prefix:  conf.ContentS3Prefix,
		S3Client:  s3.NewFromConfig(awsCfg),
		SSMClient: ssm.NewFromConfig(awsCfg),
	}
	if conf.ContentSigningKeyARN != "" {
		opts.Verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), conf.ContentSigningKeyARN)
	}

	loader, err := content.NewLoader(ctx, opts)
	if err != nil {
		L.Error(ctx, err, "failed to create content loader, serving seed content only")
		return nil
	}
	return loader
}

// contentMetrics is the subset of *metrics.ServerMetrics describing the active bundle.
type contentMetrics interface {
	SetContentSource(source string)
	SetContentBundle(sha256, version string)
	SetContentLoadedTimestamp(t time.Time)
	SetContentArticles(n int)
}

func publishContentMetrics(m contentMetrics, mgr *content.Manager) {
	snap, ok := mgr.Get()
	if !ok {
		return
	}
	m.SetContentSource(string(mgr.Source()))
	m.SetContentBundle(mgr.ContentHash(), mgr.ContentVersion())
	m.SetContentLoadedTimestamp(mgr.LoadedAt())
	if r, err := content.CheckArticles(snap.FS, nil); err == nil {
		m.SetContentArticles(len(r.Present))
	}
}

// drain waits out d so load balancers see the failed readiness probe. A
// second signal cuts it short.
func drain(ctx context.Context, L log.Logger, d time.Duration) {
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(forceCh)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		L.Info(ctx, "drain period complete")
	case <-forceCh:
		L.Warn(ctx, "second signal received, skipping drain")
	}
}

// notifySystemd sends READY=1 when running as a Type=notify unit.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify: %w", err)
	}
	return conn.Close()
}
