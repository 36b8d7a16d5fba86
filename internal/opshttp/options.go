package opshttp

import (
	"net/http"

	"github.com/keithlinneman/viteguide-web/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// Content serves the active bundle metadata at /-/content when set.
	Content http.Handler

	UseRecoverMW bool
	// OnPanic runs after a recovered panic, typically a counter.
	OnPanic func()
}
