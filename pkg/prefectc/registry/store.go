// Package registry keeps a local record of Prefect deployments created
// from compiled flows, so the CLI can list and prune what it registered
// without asking the orchestrator's control plane.
package registry

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Deployment is one registered flow deployment.
type Deployment struct {
	// ID is a locally generated unique identifier.
	ID string

	// FlowName is the source workflow name (e.g. "SimpleFlow").
	FlowName string

	// Name is the Prefect deployment name.
	Name string

	// WorkPool is the target Prefect work pool, empty for the default.
	WorkPool string

	// ScheduleCron is the deployment's cron schedule, empty when none.
	ScheduleCron string

	// Tags applied to the deployment.
	Tags []string

	// SourceFile and OutputFile are the original workflow file and the
	// generated Prefect program.
	SourceFile string
	OutputFile string

	// Paused records whether the deployment was registered paused.
	Paused bool

	// CreatedAt is the registration time in UTC.
	CreatedAt time.Time
}

// NewDeployment builds a Deployment with a fresh ID and timestamp.
func NewDeployment(flowName, name string) Deployment {
	return Deployment{
		ID:        uuid.NewString(),
		FlowName:  flowName,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists deployment records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a deployment record.
	// Overwrites if a record with the same ID already exists.
	Save(d Deployment) error

	// Get retrieves a deployment by ID.
	// Returns ErrNotFound if no such record exists.
	Get(id string) (Deployment, error)

	// List returns all deployments for a flow, newest first.
	// An empty flowName lists every record.
	// Returns empty slice (not error) if nothing matches.
	List(flowName string) ([]Deployment, error)

	// Delete removes a deployment record.
	// Returns nil if the record doesn't exist.
	Delete(id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for registry operations.
var (
	// ErrNotFound indicates a deployment record doesn't exist.
	ErrNotFound = errors.New("deployment not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("registry store closed")
)
