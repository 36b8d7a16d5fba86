package health

import (
	"context"
	"errors"
	"sync/atomic"
)

// Probe returns nil when healthy, otherwise the reason it is not.
type Probe interface{ Check(context.Context) error }

type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := errors.New(reason)
	return func(context.Context) error { return err }
}

// All passes when every probe passes. Failures are joined so the
// readiness body names all of them. Nil probes are skipped.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Readier is satisfied by *content.Manager.
type Readier interface{ ReadyErr() error }

// Ready adapts a Readier into a probe.
func Ready(r Readier) CheckFunc {
	return func(context.Context) error { return r.ReadyErr() }
}

// ShutdownGate fails readiness once closed so load balancers drain the
// instance before the listeners stop.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

// Close fails the gate with reason.
func (g *ShutdownGate) Close(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
}

// Open clears a previous Close.
func (g *ShutdownGate) Open() { g.reason.Store(nil) }

func (g *ShutdownGate) Closed() bool { return g.reason.Load() != nil }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return errors.New(*r)
		}
		return nil
	}
}
