// Package ratelimit is per-client-IP token bucket middleware for the public
// article listener.
//
// State lives in one process. Each IP gets a golang.org/x/time/rate limiter
// held in a bounded LRU, so a flood of distinct addresses evicts the least
// recently seen client instead of growing memory. Idle clients are swept
// after a TTL.
//
// It blunts a single noisy client and gives one log line per offender plus
// counters for every denial. Distributed floods and bandwidth abuse belong to
// the load balancer or CDN in front.
package ratelimit
