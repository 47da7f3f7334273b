package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skekre98/modhost/module"
)

// Status is the overall outcome of an operation.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusPartial means some registry changes were applied and others
	// failed, or some modules of a batch failed.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ModuleOutcome is what happened to one module during an operation.
type ModuleOutcome struct {
	ID      string       `json:"id"`
	Version string       `json:"version,omitempty"`
	Action  string       `json:"action"`
	State   module.State `json:"state"`
	Kind    module.Kind  `json:"errorKind,omitempty"`
	Message string       `json:"message,omitempty"`
	Err     error        `json:"-"`
}

// Result is the structured answer to every operation.
type Result struct {
	ID        string          `json:"id"`
	Operation OperationKind   `json:"operation"`
	Status    Status          `json:"status"`
	Modules   []ModuleOutcome `json:"modules"`
	// LeftStopped lists dependents an interrupted update stopped and did not
	// restart. They need manual attention.
	LeftStopped []string      `json:"leftStopped,omitempty"`
	Refreshed   bool          `json:"refreshed"`
	Messages    []string      `json:"messages,omitempty"`
	Duration    time.Duration `json:"duration"`
	// Err is the failure that halted the operation, if any.
	Err error `json:"-"`

	started time.Time
	mutated bool
}

func newResult(op Operation) *Result {
	return &Result{
		ID:        uuid.NewString(),
		Operation: op.Kind(),
		Modules:   []ModuleOutcome{},
		started:   time.Now(),
	}
}

// ErrorKind is the classification of Err, or "" when the operation did not
// halt.
func (r *Result) ErrorKind() module.Kind {
	return module.KindOf(r.Err)
}

// Outcome returns the last recorded outcome for a module.
func (r *Result) Outcome(id string) (ModuleOutcome, bool) {
	for i := len(r.Modules) - 1; i >= 0; i-- {
		if r.Modules[i].ID == id {
			return r.Modules[i], true
		}
	}
	return ModuleOutcome{}, false
}

// Failures returns the outcomes that carry an error.
func (r *Result) Failures() []ModuleOutcome {
	var out []ModuleOutcome
	for _, o := range r.Modules {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) record(o ModuleOutcome) {
	if o.Err != nil {
		o.Kind = module.KindOf(o.Err)
		if o.Message == "" {
			o.Message = o.Err.Error()
		}
	}
	r.Modules = append(r.Modules, o)
}

func (r *Result) notef(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// halt records the failure that stops the operation. Only the first one is
// kept.
func (r *Result) halt(err error) {
	if r.Err == nil {
		r.Err = err
		r.Messages = append(r.Messages, err.Error())
	}
}

func (r *Result) finish() {
	r.Duration = time.Since(r.started)
	switch {
	case r.Err != nil && r.mutated:
		r.Status = StatusPartial
	case r.Err != nil:
		r.Status = StatusFailed
	case len(r.Failures()) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSucceeded
	}
}

// AsError summarizes a non-successful result for callers that only care
// about success.
func (r *Result) AsError() error {
	if r.Status == StatusSucceeded {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	errs := make([]error, 0, len(r.Modules))
	for _, o := range r.Failures() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}
