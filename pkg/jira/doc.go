// Package jira provides a client for the Jira Cloud enhanced search
// API, covering exactly what the exporter needs: one-page search
// requests with token pagination, a JQL builder for the boundary
// filter and total ordering, and typed error classification including
// Retry-After extraction on rate-limit responses.
package jira
