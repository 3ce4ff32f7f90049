package repository

import (
	"context"
	"time"

	"timeglass/internal/types"
)

// EventRepository defines the interface for activity event persistence.
// Implementations must preserve the store invariant that persisted events
// never overlap in time.
type EventRepository interface {
	// AppendEvent persists a closed event and assigns its ID.
	// Fails with a validation error when EndTime <= StartTime and with an
	// overlap error when the event intersects an existing one.
	AppendEvent(ctx context.Context, event *types.Event) error

	// AppendEvents persists a batch of closed events in a single
	// transaction. The batch is rejected as a whole on the first
	// validation or overlap failure.
	AppendEvents(ctx context.Context, events []types.Event) error

	// GetEvent retrieves a single event by ID.
	GetEvent(ctx context.Context, id int64) (*types.Event, error)

	// UpdateEvent applies a partial update to an event. Nil patch fields
	// are left unchanged. The update is rejected when the resulting bounds
	// are invalid or overlap another event, leaving the store untouched.
	UpdateEvent(ctx context.Context, id int64, patch *types.EventPatch) (*types.Event, error)

	// ScanEvents returns all events intersecting the half-open window
	// [start, end), ordered by start time ascending.
	ScanEvents(ctx context.Context, start, end time.Time) ([]types.Event, error)

	// CountEvents returns the total number of persisted events.
	CountEvents(ctx context.Context) (int64, error)
}

// MappingRepository defines the interface for project mapping persistence.
type MappingRepository interface {
	// UpsertMapping inserts a mapping or updates the project name of an
	// existing mapping with the same (process, window) key.
	UpsertMapping(ctx context.Context, mapping *types.ProjectMapping) error

	// ListMappings returns all mappings ordered by process name then
	// window title.
	ListMappings(ctx context.Context) ([]types.ProjectMapping, error)

	// DeleteMapping removes a mapping by ID.
	DeleteMapping(ctx context.Context, id int64) error

	// ResolveProject resolves the project for a (process, window) pair:
	// an exact window match wins over the process-level default. Returns
	// nil when no mapping applies.
	ResolveProject(ctx context.Context, processName, windowTitle string) (*string, error)

	// ListProjects returns the distinct project names across all
	// mappings, deduplicated case-insensitively.
	ListProjects(ctx context.Context) ([]string, error)
}

// Repository combines event and mapping persistence with transaction
// support over a single store.
type Repository interface {
	EventRepository
	MappingRepository

	// WithTransaction executes fn within a database transaction. The
	// repository passed to fn routes all operations through the
	// transaction.
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
}
