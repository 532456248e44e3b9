package mashup

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Failure is one item the run skipped and kept going without.
type Failure struct {
	// Stage is where it happened: "download", "process", "artwork", ...
	Stage string

	// Item names the file or resource involved, if any.
	Item string

	Err error
}

func (f Failure) Error() string {
	if f.Item == "" {
		return fmt.Sprintf("%s: %v", f.Stage, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Stage, f.Item, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Failures collects non-fatal errors so a run can continue past them.
//
// Failures is safe for concurrent use. The zero value is ready to use.
type Failures struct {
	mu    sync.Mutex
	items []Failure
}

// Add records err under stage and item. A nil err is ignored.
func (f *Failures) Add(stage, item string, err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Failure{Stage: stage, Item: item, Err: err})
}

// Items returns a copy of the recorded failures in order.
func (f *Failures) Items() []Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Failure(nil), f.items...)
}

// Errors returns the recorded failures as errors.
func (f *Failures) Errors() []error {
	items := f.Items()
	errs := make([]error, len(items))
	for i, item := range items {
		errs[i] = item
	}
	return errs
}

// Len returns the number of recorded failures.
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Err joins all failures, or returns nil when there are none.
func (f *Failures) Err() error {
	return errors.Join(f.Errors()...)
}

// Summary returns a human-readable summary of all failures.
func (f *Failures) Summary() string {
	items := f.Items()
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d items failed:\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, item.Error())
	}
	return sb.String()
}
