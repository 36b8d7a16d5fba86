// Package httpmw holds the middleware shared by the public article server.
//
// httpserver.NewHandler composes it outermost first: panic recovery,
// security headers, request ID, client IP, rate limiting, tracing,
// content headers, metrics, request logging and finally the chi router.
//
// Request logs never include query values beyond the raw string or any
// header the client controls.
package httpmw
