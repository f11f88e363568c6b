// Package planstore persists compiled plan artifacts so front ends can
// reuse a plan across processes instead of recompiling. It stores
// compiler output only, never runtime workflow state.
package planstore

import (
	"errors"
	"time"
)

// Store persists serialized plan documents keyed by workflow name and
// plan ID. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a plan document. Overwrites if (workflow, planID)
	// already exists.
	Save(workflow, planID string, doc []byte) error

	// Load retrieves a plan document.
	// Returns ErrNotFound if the plan doesn't exist.
	Load(workflow, planID string) ([]byte, error)

	// Latest retrieves the most recently saved plan for a workflow.
	// Returns ErrNotFound if the workflow has no plans.
	Latest(workflow string) ([]byte, error)

	// List returns metadata for a workflow's plans, oldest first.
	// Returns an empty slice (not an error) if the workflow has none.
	List(workflow string) ([]Info, error)

	// Delete removes one plan. Returns nil if it doesn't exist.
	Delete(workflow, planID string) error

	// DeleteWorkflow removes all plans for a workflow.
	DeleteWorkflow(workflow string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info is plan metadata without the document body.
type Info struct {
	Workflow string
	PlanID   string
	Created  time.Time
	Size     int64
}

// Sentinel errors for plan store operations.
var (
	// ErrNotFound indicates the requested plan doesn't exist.
	ErrNotFound = errors.New("plan not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("plan store closed")
)
