package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/repository"
	"timeglass/internal/types"
)

// MockRepository provides an in-memory Repository implementation for
// testing service behavior, including configurable failure modes and
// call counting.
type MockRepository struct {
	mutex    sync.Mutex
	events   map[int64]types.Event
	mappings map[[2]string]types.ProjectMapping
	nextID   int64

	failAppend bool
	failUpdate bool
	failScan   bool

	appendCalls int
	updateCalls int
	scanCalls   int
}

// NewMockRepository creates an empty mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		events:   make(map[int64]types.Event),
		mappings: make(map[[2]string]types.ProjectMapping),
		nextID:   1,
	}
}

// SetFailureModes configures which operations should fail with a
// storage error
func (m *MockRepository) SetFailureModes(append, update, scan bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failAppend = append
	m.failUpdate = update
	m.failScan = scan
}

// GetCallCounts returns how many times each operation was invoked
func (m *MockRepository) GetCallCounts() (appendCalls, updateCalls, scanCalls int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.appendCalls, m.updateCalls, m.scanCalls
}

func (m *MockRepository) storageError(op string) error {
	return repoerrors.NewRepositoryError(op, fmt.Errorf("simulated storage failure"), repoerrors.ErrCodeConnection)
}

func (m *MockRepository) overlaps(start, end time.Time, excludeID int64) (int64, bool) {
	for id, event := range m.events {
		if id == excludeID {
			continue
		}
		if event.StartTime.Before(end) && event.EndTime.After(start) {
			return id, true
		}
	}
	return 0, false
}

// AppendEvent stores a closed event, enforcing the same validation and
// overlap rules as the SQLite repository
func (m *MockRepository) AppendEvent(ctx context.Context, event *types.Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.appendCalls++
	if m.failAppend {
		return m.storageError("AppendEvent")
	}

	if !event.EndTime.After(event.StartTime) {
		return repoerrors.HandleValidationError("AppendEvent", "end_time",
			event.EndTime.String(), "end must be after start")
	}
	if conflictID, found := m.overlaps(event.StartTime, event.EndTime, 0); found {
		return repoerrors.HandleOverlapError("AppendEvent",
			event.StartTime.String(), event.EndTime.String(), fmt.Sprintf("%d", conflictID))
	}

	event.ID = m.nextID
	m.nextID++
	m.events[event.ID] = *event
	return nil
}

// AppendEvents stores a batch atomically
func (m *MockRepository) AppendEvents(ctx context.Context, events []types.Event) error {
	for i := range events {
		if err := m.AppendEvent(ctx, &events[i]); err != nil {
			// Roll back what this batch already stored
			m.mutex.Lock()
			for j := 0; j < i; j++ {
				delete(m.events, events[j].ID)
			}
			m.mutex.Unlock()
			return err
		}
	}
	return nil
}

// GetEvent retrieves an event by ID
func (m *MockRepository) GetEvent(ctx context.Context, id int64) (*types.Event, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	event, ok := m.events[id]
	if !ok {
		return nil, repoerrors.HandleNotFound("GetEvent", "event", fmt.Sprintf("%d", id))
	}
	return &event, nil
}

// UpdateEvent applies a patch with the repository's validation and
// overlap rules
func (m *MockRepository) UpdateEvent(ctx context.Context, id int64, patch *types.EventPatch) (*types.Event, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.updateCalls++
	if m.failUpdate {
		return nil, m.storageError("UpdateEvent")
	}

	event, ok := m.events[id]
	if !ok {
		return nil, repoerrors.HandleNotFound("UpdateEvent", "event", fmt.Sprintf("%d", id))
	}
	if patch.IsEmpty() {
		return &event, nil
	}

	patch.Apply(&event)

	if !event.EndTime.After(event.StartTime) {
		return nil, repoerrors.HandleValidationError("UpdateEvent", "end_time",
			event.EndTime.String(), "end must be after start")
	}
	if conflictID, found := m.overlaps(event.StartTime, event.EndTime, id); found {
		return nil, repoerrors.HandleOverlapError("UpdateEvent",
			event.StartTime.String(), event.EndTime.String(), fmt.Sprintf("%d", conflictID))
	}

	m.events[id] = event
	return &event, nil
}

// ScanEvents returns events intersecting [start, end) ordered by start
func (m *MockRepository) ScanEvents(ctx context.Context, start, end time.Time) ([]types.Event, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.scanCalls++
	if m.failScan {
		return nil, m.storageError("ScanEvents")
	}

	var events []types.Event
	for _, event := range m.events {
		if event.StartTime.Before(end) && event.EndTime.After(start) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

// CountEvents returns the number of stored events
func (m *MockRepository) CountEvents(ctx context.Context) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return int64(len(m.events)), nil
}

// UpsertMapping stores or replaces a mapping under its normalized key
func (m *MockRepository) UpsertMapping(ctx context.Context, mapping *types.ProjectMapping) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	process := repository.NormalizeProcessName(mapping.ProcessName)
	project := strings.TrimSpace(mapping.ProjectName)
	if process == "" {
		return repoerrors.HandleValidationError("UpsertMapping", "process_name", mapping.ProcessName, "required")
	}
	if project == "" {
		return repoerrors.HandleValidationError("UpsertMapping", "project_name", mapping.ProjectName, "required")
	}

	key := [2]string{process, mapping.WindowTitle}
	now := time.Now()
	if existing, ok := m.mappings[key]; ok {
		existing.ProjectName = project
		existing.UpdatedAt = now
		m.mappings[key] = existing
		*mapping = existing
		return nil
	}

	stored := types.ProjectMapping{
		ID:          m.nextID,
		ProcessName: process,
		WindowTitle: mapping.WindowTitle,
		ProjectName: project,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.nextID++
	m.mappings[key] = stored
	*mapping = stored
	return nil
}

// ListMappings returns all mappings ordered by process then window
func (m *MockRepository) ListMappings(ctx context.Context) ([]types.ProjectMapping, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	mappings := make([]types.ProjectMapping, 0, len(m.mappings))
	for _, mapping := range m.mappings {
		mappings = append(mappings, mapping)
	}
	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].ProcessName != mappings[j].ProcessName {
			return mappings[i].ProcessName < mappings[j].ProcessName
		}
		return mappings[i].WindowTitle < mappings[j].WindowTitle
	})
	return mappings, nil
}

// DeleteMapping removes a mapping by ID
func (m *MockRepository) DeleteMapping(ctx context.Context, id int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, mapping := range m.mappings {
		if mapping.ID == id {
			delete(m.mappings, key)
			return nil
		}
	}
	return repoerrors.HandleNotFound("DeleteMapping", "mapping", fmt.Sprintf("%d", id))
}

// ResolveProject applies the exact-then-default lookup
func (m *MockRepository) ResolveProject(ctx context.Context, processName, windowTitle string) (*string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	process := repository.NormalizeProcessName(processName)
	if process == "" {
		return nil, nil
	}
	if mapping, ok := m.mappings[[2]string{process, windowTitle}]; ok {
		project := mapping.ProjectName
		return &project, nil
	}
	if mapping, ok := m.mappings[[2]string{process, ""}]; ok {
		project := mapping.ProjectName
		return &project, nil
	}
	return nil, nil
}

// ListProjects returns distinct project names, case-insensitively
// de-duplicated, first-seen spelling preserved
func (m *MockRepository) ListProjects(ctx context.Context) ([]string, error) {
	mappings, err := m.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(mappings, func(i, j int) bool {
		li := strings.ToLower(mappings[i].ProjectName)
		lj := strings.ToLower(mappings[j].ProjectName)
		if li != lj {
			return li < lj
		}
		return mappings[i].ID < mappings[j].ID
	})

	var projects []string
	seen := make(map[string]bool)
	for _, mapping := range mappings {
		key := strings.ToLower(mapping.ProjectName)
		if seen[key] {
			continue
		}
		seen[key] = true
		projects = append(projects, mapping.ProjectName)
	}
	return projects, nil
}

// WithTransaction runs fn against the mock itself; the mock's
// operations are individually atomic already
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repo repository.Repository) error) error {
	return fn(m)
}
