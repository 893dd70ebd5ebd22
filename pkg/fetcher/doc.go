// Package fetcher drives the resumable export loop: load checkpoint,
// fetch ordered pages, forward unseen records to the sink, persist the
// checkpoint after each durably written batch.
//
// One run is a single sequential flow of control; exactly one process
// may hold a given checkpoint at a time. Because cursor persistence is
// strictly ordered after sink persistence, killing the process at any
// point leaves a state from which a rerun resumes without duplicates
// or gaps.
package fetcher
