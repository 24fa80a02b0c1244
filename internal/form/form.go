// Package form holds the draft of a record while it is being edited.
//
// A Form is seeded with initial values, bound to submitted input, validated
// with a table of per-field rules and submitted through a handler. The
// submitting flag guards against duplicate submissions of the same draft.
package form

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"sync"
)

var (
	// ErrInvalid is returned by Submit when a rule rejects a field
	ErrInvalid = errors.New("form has validation errors")
	// ErrSubmitting is returned by Submit while a previous submission is running
	ErrSubmitting = errors.New("form is already being submitted")
)

// State of a form across a submission
type State int

const (
	Idle State = iota
	Validating
	Invalid
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler receives the validated values of a submission
type Handler func(ctx context.Context, values url.Values) error

// Form is a draft plus its validation state. It is safe for concurrent use.
type Form struct {
	mu      sync.Mutex
	rules   Rules
	fields  []string
	initial url.Values
	values  url.Values
	errors  map[string]string
	state   State
	seeded  bool
}

// New creates a form whose draft starts at initial
func New(initial url.Values, rules Rules) *Form {
	f := &Form{
		rules:   make(Rules, len(rules)),
		initial: cloneValues(initial),
		values:  cloneValues(initial),
		errors:  make(map[string]string),
	}
	for field, rule := range rules {
		f.rules[field] = rule
	}
	for field := range initial {
		f.fields = append(f.fields, field)
	}
	for field := range rules {
		if !slices.Contains(f.fields, field) {
			f.fields = append(f.fields, field)
		}
	}
	sort.Strings(f.fields)
	return f
}

// Seed replaces initial and current values the first time it is called and
// reports whether it did. Later calls are ignored so that a refreshed record
// never overwrites what the user has typed.
func (f *Form) Seed(values url.Values) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seeded {
		return false
	}
	f.initial = cloneValues(values)
	f.values = cloneValues(values)
	f.errors = make(map[string]string)
	for field := range values {
		if !slices.Contains(f.fields, field) {
			f.fields = append(f.fields, field)
		}
	}
	sort.Strings(f.fields)
	f.seeded = true
	return true
}

// Seeded reports whether Seed has run
func (f *Form) Seeded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seeded
}

// Bind copies submitted input into the draft. Every known field is taken
// from submitted; a field missing from it (an unchecked checkbox) is cleared.
func (f *Form) Bind(submitted url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if v, ok := submitted[field]; ok {
			f.values[field] = slices.Clone(v)
		} else {
			delete(f.values, field)
		}
	}
}

// Set overwrites a single field
func (f *Form) Set(field string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.fields, field) {
		f.fields = append(f.fields, field)
		sort.Strings(f.fields)
	}
	f.values[field] = slices.Clone(values)
}

// Value returns the first value of field
func (f *Form) Value(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Get(field)
}

// List returns every value of field
func (f *Form) List(field string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.values[field])
}

// Checked reports whether a checkbox field is on
func (f *Form) Checked(field string) bool {
	v := f.Value(field)
	return v == "true" || v == "on" || v == "1"
}

// Selected reports whether value is among the values of field
func (f *Form) Selected(field, value string) bool {
	return slices.Contains(f.List(field), value)
}

// Dirty reports whether any field differs from its initial value
func (f *Form) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if !slices.Equal(f.values[field], f.initial[field]) {
			return true
		}
	}
	return false
}

// ValidateField runs the rule of a single field, as on blur, and records the result
func (f *Form) ValidateField(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[field]
	if !ok {
		return ""
	}
	msg := rule(f.values.Get(field))
	if msg == "" {
		delete(f.errors, field)
	} else {
		f.errors[field] = msg
	}
	return msg
}

// Validate runs every rule and reports whether the draft is valid
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() bool {
	f.state = Validating
	f.errors = make(map[string]string)
	for field, rule := range f.rules {
		if msg := rule(f.values.Get(field)); msg != "" {
			f.errors[field] = msg
		}
	}
	if len(f.errors) > 0 {
		f.state = Invalid
		return false
	}
	f.state = Idle
	return true
}

// Submit validates the draft and, when valid, runs handler with its values.
// It returns ErrInvalid without calling handler if validation fails and
// ErrSubmitting if another submission is still running.
func (f *Form) Submit(ctx context.Context, handler Handler) error {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return ErrSubmitting
	}
	if !f.validateLocked() {
		f.mu.Unlock()
		return ErrInvalid
	}
	f.state = Submitting
	values := cloneValues(f.values)
	f.mu.Unlock()

	err := handler(ctx, values)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Failed
		return err
	}
	f.state = Succeeded
	return nil
}

// Error returns the validation message of field
func (f *Form) Error(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[field]
}

// Errors returns a copy of all validation messages
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// State returns the current state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submitting reports whether a submission is running
func (f *Form) Submitting() bool {
	return f.State() == Submitting
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}

// SetRule installs or replaces the rule of a field. Rules that depend on
// fetched data, such as the current coffee list, are refreshed this way.
func (f *Form) SetRule(field string, rule Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[field] = rule
	if !slices.Contains(f.fields, field) {
		f.fields = append(f.fields, field)
		sort.Strings(f.fields)
	}
}
