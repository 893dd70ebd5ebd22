// Package sink writes exported issues to durable output files.
//
// The CSV sink is append-only: it never rewrites rows already on disk,
// which is what makes interrupted exports safe to re-run. Flush must be
// called before recording progress elsewhere so that acknowledged rows
// are actually on disk.
package sink
