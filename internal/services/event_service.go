package services

import (
	"context"
	"time"

	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/repository"
	"timeglass/internal/types"
)

// dateKey renders the cache key for the day containing t
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// datesTouched returns the date keys of every day the [start, end]
// interval touches. An edit spanning midnight touches two days.
func datesTouched(start, end time.Time) []string {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	var dates []string
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		dates = append(dates, dateKey(day))
	}
	return dates
}

// EventService fronts the event repository for all writers and keeps
// the rollup cache honest: every write invalidates exactly the days it
// touches, and nothing else mutates the cache.
type EventService struct {
	repo   repository.EventRepository
	cache  *RollupCache
	logger logging.Logger
}

// NewEventService creates an event service over the repository and cache
func NewEventService(repo repository.EventRepository, cache *RollupCache, logger logging.Logger) *EventService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &EventService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// AppendEvent persists a closed event and invalidates the rollups of
// the days it covers
func (s *EventService) AppendEvent(ctx context.Context, event *types.Event) error {
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return err
	}
	s.cache.Invalidate(datesTouched(event.StartTime, event.EndTime)...)
	return nil
}

// AppendEvents persists a batch and invalidates the rollups of every
// day the batch covers
func (s *EventService) AppendEvents(ctx context.Context, events []types.Event) error {
	if err := s.repo.AppendEvents(ctx, events); err != nil {
		return err
	}
	for i := range events {
		s.cache.Invalidate(datesTouched(events[i].StartTime, events[i].EndTime)...)
	}
	return nil
}

// GetEvent retrieves a single event by ID
func (s *EventService) GetEvent(ctx context.Context, id int64) (*types.Event, error) {
	return s.repo.GetEvent(ctx, id)
}

// UpdateEvent applies a partial update and invalidates the rollups of
// both the event's previous days and its new ones; a moved event
// leaves no stale total behind.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, patch *types.EventPatch) (*types.Event, error) {
	before, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateEvent(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(datesTouched(before.StartTime, before.EndTime)...)
	s.cache.Invalidate(datesTouched(updated.StartTime, updated.EndTime)...)

	return updated, nil
}

// ScanEvents returns all events intersecting [start, end)
func (s *EventService) ScanEvents(ctx context.Context, start, end time.Time) ([]types.Event, error) {
	return s.repo.ScanEvents(ctx, start, end)
}

// CountEvents returns the total number of persisted events
func (s *EventService) CountEvents(ctx context.Context) (int64, error) {
	return s.repo.CountEvents(ctx)
}
