// Package cursor provides the export checkpoint: a composite
// (updated, key) position in the ordered Jira result set plus the
// opaque page token for the in-flight result set.
//
// The checkpoint is saved atomically (temp file + rename) and only
// after the corresponding rows have been durably written to the
// output, so an interrupted run resumes with at most a small overlap
// and never loses records. The pair is monotonically non-decreasing
// across saves within a run.
package cursor
