package ingest

import (
	"fmt"
	"strings"
)

// DocumentError records one failed document within an ingestion run.
type DocumentError struct {
	Ref string
	Err error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

func (e DocumentError) Unwrap() error { return e.Err }

// Report summarizes an ingestion run. A run keeps going past individual
// document failures; the failures are collected here. Truncated counts
// documents skipped because the run was cancelled.
type Report struct {
	Total     int
	Ingested  int
	Chunks    int
	Truncated int
	Failures  []DocumentError
}

// Failed reports whether any document failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Err returns an error describing the failures, or nil when every document
// succeeded.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Errorf("%d of %d documents failed: %s", len(r.Failures), r.Total, strings.Join(msgs, "; "))
}
