// Package health builds the liveness and readiness probes served on both
// listeners. Readiness for the article site means the shutdown gate is open
// and a bundle covering the registry is loaded.
package health
