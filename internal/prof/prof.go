// Package prof pushes continuous profiles to Pyroscope.
package prof

import (
	"context"
	"net/url"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	TenantID      string
	Tags          map[string]string

	// runtime sampling rates; zero leaves the runtime default
	MutexProfileFraction int
	BlockProfileRate     int

	// OnActive reports whether profiles are being pushed, e.g. to a gauge.
	OnActive func(active bool)
}

// profileTypes is every type the article server pushes. Mutex and block
// profiles stay empty unless their runtime rates are set.
func profileTypes() []pyroscope.ProfileType {
	return []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
		pyroscope.ProfileBlockCount,
		pyroscope.ProfileBlockDuration,
	}
}

func validate(opts Options) error {
	if opts.AppName == "" {
		return xerrors.New("pyroscope app name is required")
	}
	u, err := url.Parse(opts.ServerAddress)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return xerrors.Newf("invalid pyroscope server address %q", opts.ServerAddress)
	}
	return nil
}

// Start begins pushing profiles and returns a stop func that is always
// safe to call, even on error.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	report := func(active bool) {
		if opts.OnActive != nil {
			opts.OnActive(active)
		}
	}
	noop := func() {}

	if !opts.Enabled {
		report(false)
		L.Info(ctx, "pyroscope disabled")
		return noop, nil
	}
	if err := validate(opts); err != nil {
		report(false)
		return noop, err
	}

	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes(),
	})
	if err != nil {
		report(false)
		return noop, xerrors.Wrap(err, "start pyroscope")
	}
	report(true)
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	return func() {
		profiler.Stop()
		report(false)
		L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
	}, nil
}
