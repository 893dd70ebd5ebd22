// Package ratelimit provides client-side rate limiting for API calls.
//
// The token bucket limiter spaces out search requests proactively so
// the exporter rarely hits the server's 429 responses in the first
// place; the reactive Retry-After handling in the retry package covers
// the cases it does.
package ratelimit
