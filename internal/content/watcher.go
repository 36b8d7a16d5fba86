package content

import (
	"context"
	"fmt"
	"time"

	"github.com/keithlinneman/viteguide-web/internal/cryptoutil"
	"github.com/keithlinneman/viteguide-web/internal/log"
)

const (
	DefaultPollInterval = 30 * time.Second

	maxBackoff            = 5 * time.Minute
	defaultStaleThreshold = 30 * time.Minute
)

type pollResult int

const (
	pollNoChange pollResult = iota
	pollSwapped
	pollSSMError
	pollLoadError
	pollValidationError
)

// BundleFetcher is what the Watcher needs from a Loader.
type BundleFetcher interface {
	FetchCurrentBundleHash(ctx context.Context) (algorithm, hash string, err error)
	LoadHash(ctx context.Context, algorithm, hash string) (*Snapshot, error)
}

// WatcherMetrics is implemented by *metrics.ServerMetrics.
type WatcherMetrics interface {
	IncWatcherPolls()
	IncWatcherSwaps()
	IncWatcherError(errType string)
	ObserveBundleLoadDuration(seconds float64)
	SetWatcherLastSuccess(unixSeconds float64)
	SetWatcherStale(stale bool)
}

type WatcherOptions struct {
	Logger       log.Logger
	Loader       BundleFetcher
	Manager      *Manager
	PollInterval time.Duration

	// Validation defaults to DefaultValidationOptions.
	Validation *ValidationOptions

	// OnSwap runs on the poll goroutine after each successful swap. Panics are recovered.
	OnSwap func(Meta)

	Metrics WatcherMetrics

	// StaleThreshold is how long SSM may be unreachable before the watcher reports stale content.
	StaleThreshold time.Duration
}

// Watcher polls SSM and swaps in new bundles that pass validation.
// A rejected bundle never replaces the content already being served.
type Watcher struct {
	loader     BundleFetcher
	manager    *Manager
	logger     log.Logger
	interval   time.Duration
	validation ValidationOptions
	onSwap     func(Meta)
	metrics    WatcherMetrics

	currentHash string
	// rejectedHash stops a bad bundle from being re-downloaded every tick.
	rejectedHash string

	consecutiveErrs int
	staleThreshold  time.Duration
	lastSuccessAt   time.Time
	stale           bool

	polls, swaps int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	w := &Watcher{
		loader:         opts.Loader,
		manager:        opts.Manager,
		logger:         opts.Logger,
		interval:       opts.PollInterval,
		validation:     DefaultValidationOptions(),
		onSwap:         opts.OnSwap,
		metrics:        opts.Metrics,
		staleThreshold: opts.StaleThreshold,
		lastSuccessAt:  time.Now(),
	}
	if w.logger == nil {
		w.logger = log.Nop()
	}
	if w.interval <= 0 {
		w.interval = DefaultPollInterval
	}
	if w.staleThreshold <= 0 {
		w.staleThreshold = defaultStaleThreshold
	}
	if opts.Validation != nil {
		w.validation = *opts.Validation
	}
	// the startup load already fetched this hash
	if snap, ok := opts.Manager.Get(); ok {
		w.currentHash = snap.Meta.Hash
	}
	return w
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "content watcher starting",
		"poll_interval", w.interval.String(),
		"current_hash", truncHash(w.currentHash),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "content watcher stopping", "polls", w.polls, "swaps", w.swaps)
			return ctx.Err()
		case <-ticker.C:
			res := w.checkOnce(ctx)
			if next, changed := w.nextInterval(res); changed {
				ticker.Reset(next)
			}
			w.trackStaleness(ctx, res)
		}
	}
}

// nextInterval applies exponential backoff while SSM keeps failing.
func (w *Watcher) nextInterval(res pollResult) (time.Duration, bool) {
	if res == pollSSMError {
		w.consecutiveErrs++
		d := w.backoffDuration()
		w.logger.Warn(context.Background(), "content watcher: backing off",
			"consecutive_errors", w.consecutiveErrs,
			"next_poll_in", d.String(),
		)
		return d, true
	}
	if w.consecutiveErrs == 0 {
		return 0, false
	}
	w.logger.Info(context.Background(), "content watcher: recovered", "after_errors", w.consecutiveErrs)
	w.consecutiveErrs = 0
	return w.interval, true
}

func (w *Watcher) trackStaleness(ctx context.Context, res pollResult) {
	if res != pollSSMError {
		if w.stale {
			w.stale = false
			w.logger.Info(ctx, "content watcher: staleness recovered")
			w.setStale(false)
		}
		return
	}
	since := time.Since(w.lastSuccessAt)
	if w.stale || since <= w.staleThreshold {
		return
	}
	w.stale = true
	w.logger.Error(ctx, fmt.Errorf("no successful SSM poll for %s", since.Truncate(time.Second)),
		"content watcher: content may be stale")
	w.setStale(true)
}

func (w *Watcher) setStale(v bool) {
	if w.metrics != nil {
		w.metrics.SetWatcherStale(v)
	}
}

func (w *Watcher) countError(kind string) {
	if w.metrics != nil {
		w.metrics.IncWatcherError(kind)
	}
}

// checkOnce runs one poll, compare, load, validate, swap cycle.
func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.polls++
	if w.metrics != nil {
		w.metrics.IncWatcherPolls()
	}

	algorithm, hash, err := w.loader.FetchCurrentBundleHash(ctx)
	if err != nil {
		w.logger.Error(ctx, err, "content watcher: SSM poll failed")
		w.countError("ssm")
		return pollSSMError
	}
	w.lastSuccessAt = time.Now()
	if w.metrics != nil {
		w.metrics.SetWatcherLastSuccess(float64(w.lastSuccessAt.Unix()))
	}

	if cryptoutil.HashEqual(hash, w.currentHash) || cryptoutil.HashEqual(hash, w.rejectedHash) {
		return pollNoChange
	}
	w.logger.Info(ctx, "content watcher: new bundle published",
		"old_hash", truncHash(w.currentHash),
		"new_hash", truncHash(hash),
	)

	start := time.Now()
	snap, err := w.loader.LoadHash(ctx, algorithm, hash)
	if w.metrics != nil {
		w.metrics.ObserveBundleLoadDuration(time.Since(start).Seconds())
	}
	if err != nil {
		// transient, retried next tick
		w.logger.Error(ctx, err, "content watcher: bundle load failed", "hash", truncHash(hash))
		w.countError("load")
		return pollLoadError
	}

	if err := ValidateSnapshot(snap, w.validation); err != nil {
		w.logger.Error(ctx, err, "content watcher: bundle rejected, keeping current content",
			"rejected_hash", truncHash(hash),
			"current_hash", truncHash(w.currentHash),
		)
		w.countError("validation")
		w.rejectedHash = hash
		return pollValidationError
	}

	prev := w.currentHash
	w.manager.Set(*snap)
	w.currentHash = hash
	w.rejectedHash = ""
	w.swaps++
	if w.metrics != nil {
		w.metrics.IncWatcherSwaps()
	}
	w.logger.Info(ctx, "content watcher: bundle swapped",
		"old_hash", truncHash(prev),
		"new_hash", truncHash(hash),
		"version", w.manager.ContentVersion(),
	)
	w.notify(ctx, snap.Meta)
	return pollSwapped
}

func (w *Watcher) notify(ctx context.Context, meta Meta) {
	if w.onSwap == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, fmt.Errorf("OnSwap panic: %v", r), "content watcher: swap callback panicked",
				"hash", truncHash(meta.Hash))
		}
	}()
	w.onSwap(meta)
}

// backoffDuration doubles the interval per consecutive error, capped at maxBackoff.
func (w *Watcher) backoffDuration() time.Duration {
	d := w.interval
	for i := 0; i < w.consecutiveErrs && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func truncHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
