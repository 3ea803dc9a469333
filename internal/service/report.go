package service

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// FailedReference is a document skipped during an all-documents scan.
type FailedReference struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// LookupReport describes how an all-documents scan went. A scan with failures
// still returns every record it could resolve.
type LookupReport struct {
	Listed  int               `json:"listed"`
	Fetched int               `json:"fetched"`
	Matched int               `json:"matched"`
	Failed  []FailedReference `json:"failed"`

	mu   sync.Mutex
	errs *multierror.Error
}

func newLookupReport() *LookupReport {
	return &LookupReport{Failed: []FailedReference{}}
}

func (r *LookupReport) fail(ref string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, FailedReference{Reference: ref, Error: err.Error()})
	r.errs = multierror.Append(r.errs, fmt.Errorf("%s: %w", ref, err))
}

func (r *LookupReport) fetched() {
	r.mu.Lock()
	r.Fetched++
	r.mu.Unlock()
}

// Err aggregates every per-document failure, or returns nil.
func (r *LookupReport) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs.ErrorOrNil()
}

func (r *LookupReport) Partial() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failed) > 0
}
