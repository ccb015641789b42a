// Package result holds the outcome accumulator returned by operations that
// report expected failures as values instead of errors.
package result

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the tagged view of a Result.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// Trace records what an operation touched and how long it took.
type Trace struct {
	CorrelationID string
	ItemCount     int
	Elapsed       time.Duration
}

// Result accumulates (message, code) pairs. A new Result is successful;
// adding any error makes it a failure. Messages and codes are each kept
// once, in insertion order.
type Result struct {
	failed   bool
	messages []string
	codes    []string
	trace    Trace
}

// New returns an empty, successful result.
func New() *Result {
	return &Result{}
}

// Success is an alias for New that reads better at return sites.
func Success() *Result {
	return New()
}

// Failure returns a result holding a single error.
func Failure(code, message string) *Result {
	return New().AddError(message, code)
}

// AddError records a failure. Empty values are ignored but still mark the
// result as failed.
func (r *Result) AddError(message, code string) *Result {
	r.failed = true
	if message != "" && !slices.Contains(r.messages, message) {
		r.messages = append(r.messages, message)
	}
	if code != "" && !slices.Contains(r.codes, code) {
		r.codes = append(r.codes, code)
	}
	return r
}

// Merge folds other into r. The merged result fails if either side failed.
func (r *Result) Merge(other *Result) *Result {
	if other == nil {
		return r
	}
	if other.failed {
		r.failed = true
	}
	for _, m := range other.messages {
		if !slices.Contains(r.messages, m) {
			r.messages = append(r.messages, m)
		}
	}
	for _, c := range other.codes {
		if !slices.Contains(r.codes, c) {
			r.codes = append(r.codes, c)
		}
	}
	return r
}

func (r *Result) Succeeded() bool { return !r.failed }
func (r *Result) Failed() bool    { return r.failed }

// Status returns the tagged outcome.
func (r *Result) Status() Status {
	if r.failed {
		return StatusFailure
	}
	return StatusSuccess
}

// Errors returns a copy of the recorded messages.
func (r *Result) Errors() []string { return slices.Clone(r.messages) }

// Codes returns a copy of the recorded codes.
func (r *Result) Codes() []string { return slices.Clone(r.codes) }

// HasCode reports whether code was recorded.
func (r *Result) HasCode(code string) bool {
	return slices.Contains(r.codes, code)
}

// FirstCode returns the first recorded code, or "" for a successful result.
func (r *Result) FirstCode() string {
	if len(r.codes) == 0 {
		return ""
	}
	return r.codes[0]
}

func (r *Result) Trace() Trace { return r.trace }

// WithTrace attaches observability data to the result.
func (r *Result) WithTrace(t Trace) *Result {
	r.trace = t
	return r
}

func (r *Result) String() string {
	if !r.failed {
		return "success"
	}
	return fmt.Sprintf("failure [%s]: %s", strings.Join(r.codes, ","), strings.Join(r.messages, "; "))
}
