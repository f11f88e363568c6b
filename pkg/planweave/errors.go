package planweave

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for compilation.
var (
	// ErrValidation indicates the workflow failed structural validation.
	ErrValidation = errors.New("workflow validation failed")

	// ErrCycle indicates the control+data graph contains an unorderable cycle.
	ErrCycle = errors.New("workflow contains a cycle")

	// ErrScopeDepth indicates scope expansion exceeded the configured depth.
	ErrScopeDepth = errors.New("scope expansion depth exceeded")
)

// Sentinel errors for invocation.
var (
	// ErrImplNotRegistered indicates a plan step has no host implementation.
	ErrImplNotRegistered = errors.New("node implementation not registered")

	// ErrReadyNotRegistered indicates a CUSTOM-join node has no predicate.
	ErrReadyNotRegistered = errors.New("custom readiness predicate not registered")

	// ErrUnknownScope indicates a scope call named a scope the current
	// instance's type does not declare.
	ErrUnknownScope = errors.New("unknown scope")
)

// ValidationError carries the full report when compilation is refused.
type ValidationError struct {
	Report *Report
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Report.Errors))
	for _, d := range e.Report.Errors {
		msgs = append(msgs, d.String())
	}
	return fmt.Sprintf("validation failed with %d error(s): %s",
		len(e.Report.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrValidation for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// CycleError names every instance involved in an unorderable cycle. The
// scheduler raises it instead of silently truncating the order.
type CycleError struct {
	// Members are the unordered instance ids, in declaration order.
	Members []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle involving %d instance(s): %s",
		len(e.Members), strings.Join(e.Members, ", "))
}

// Unwrap returns ErrCycle for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// StepError wraps an error with the failing plan step's context.
type StepError struct {
	// InstanceID is the instance that failed.
	InstanceID string
	// Op is the operation that failed (e.g. "execute", "merge", "guard").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %s: %v", e.InstanceID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a host node implementation.
type PanicError struct {
	// InstanceID is the instance whose implementation panicked.
	InstanceID string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("instance %s panicked: %v", e.InstanceID, e.Value)
}

// ScopeError wraps an error raised while expanding or invoking a scope.
type ScopeError struct {
	// Owner is the instance owning the scope.
	Owner string
	// Scope is the scope name.
	Scope string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope %s.%s: %v", e.Owner, e.Scope, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ScopeError) Unwrap() error {
	return e.Err
}

// MergeError indicates a merge strategy could not combine its values.
type MergeError struct {
	// Input is the sink port.
	Input Endpoint
	// Strategy is the declared strategy.
	Strategy MergeStrategy
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s at %s: %v", e.Strategy, e.Input, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *MergeError) Unwrap() error {
	return e.Err
}
