// Package retry provides a bounded retry policy for transient failures.
//
// The policy is a plain value (max attempts, backoff strategy, retry
// predicate) so it can be unit tested without real network timing.
// Rate-limit responses carrying a server-supplied Retry-After delay
// override the configured backoff for that attempt.
package retry
