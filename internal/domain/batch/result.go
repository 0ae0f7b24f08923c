// Package batch defines per-item outcomes for batch operations.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report aggregates batch results in input order.
type Report struct {
	Results []Result
}

// Succeeded returns the number of successful items.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status() == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the failed results, preserving input order.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Status() == StatusError {
			failed = append(failed, res)
		}
	}
	return failed
}
