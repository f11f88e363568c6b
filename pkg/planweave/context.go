package planweave

import (
	"context"
	"log/slog"
)

// RunContext is the execution context handed to host node
// implementations. It extends context.Context with invocation metadata
// and the scope-call surface.
//
// RunContext is created per step by the invoker; implementations must
// not retain it beyond the call.
type RunContext struct {
	context.Context

	logger       *slog.Logger
	invocationID string
	instanceID   string
	config       map[string]any
	scopeCall    func(scope string, payload map[string]any) (map[string]any, error)
}

// Logger returns the configured logger, enriched with invocation and
// instance context. Never nil.
func (c *RunContext) Logger() *slog.Logger {
	return c.logger
}

// InvocationID returns the unique identifier of this plan invocation.
func (c *RunContext) InvocationID() string {
	return c.invocationID
}

// InstanceID returns the instance currently executing.
func (c *RunContext) InstanceID() string {
	return c.instanceID
}

// ConfigValue returns the instance's static configuration value for a
// key, or nil if absent.
func (c *RunContext) ConfigValue(key string) any {
	if c.config == nil {
		return nil
	}
	return c.config[key]
}

// CallScope invokes one of the instance's compiled scope units with the
// given payload and returns its results: the mandatory "success" and
// "failure" outcomes plus any result values, keyed by port name. The
// owner calls it once per logical iteration; each call owns fresh
// bindings, so lazy members are memoized per call, not across calls.
//
// Returns ErrUnknownScope if the instance's type declares no scope with
// that name.
func (c *RunContext) CallScope(scope string, payload map[string]any) (map[string]any, error) {
	if c.scopeCall == nil {
		return nil, ErrUnknownScope
	}
	return c.scopeCall(scope, payload)
}
