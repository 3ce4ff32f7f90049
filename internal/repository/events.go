package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/types"
)

const eventColumns = "id, start_time, end_time, process_name, window_title, is_idle, project_name"

// AppendEvent persists a closed event with retry logic. The overlap check
// and the insert run in one transaction so concurrent writers cannot race
// past the invariant.
func (r *SQLiteRepository) AppendEvent(ctx context.Context, event *types.Event) error {
	start := time.Now()

	if event == nil {
		err := repoerrors.NewRepositoryError("AppendEvent", fmt.Errorf("event is nil"), repoerrors.ErrCodeValidation)
		logging.LogRepositoryError(r.logger, err, "AppendEvent", nil)
		return err
	}

	if err := r.validateEventBounds("AppendEvent", event.StartTime, event.EndTime); err != nil {
		return err
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		return r.inTx(ctx, "AppendEvent", func(txr *SQLiteRepository) error {
			return txr.insertEvent(ctx, event)
		})
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "AppendEvent", time.Since(start), map[string]interface{}{
			"event_id": event.ID,
			"start":    formatTime(event.StartTime),
			"end":      formatTime(event.EndTime),
		})
	}

	return err
}

// AppendEvents persists a batch of closed events in a single transaction.
// Any validation or overlap failure rejects the whole batch.
func (r *SQLiteRepository) AppendEvents(ctx context.Context, events []types.Event) error {
	start := time.Now()

	if len(events) == 0 {
		return nil
	}

	if len(events) > r.batchConfig.MaxBatchSize {
		err := repoerrors.NewRepositoryErrorWithContext("AppendEvents",
			fmt.Errorf("batch size %d exceeds maximum %d", len(events), r.batchConfig.MaxBatchSize),
			repoerrors.ErrCodeValidation, map[string]string{
				"batch_size": fmt.Sprintf("%d", len(events)),
				"max_size":   fmt.Sprintf("%d", r.batchConfig.MaxBatchSize),
			})
		logging.LogRepositoryError(r.logger, err, "AppendEvents", nil)
		return err
	}

	for i := range events {
		if err := r.validateEventBounds("AppendEvents", events[i].StartTime, events[i].EndTime); err != nil {
			return err
		}
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		return r.inTx(ctx, "AppendEvents", func(txr *SQLiteRepository) error {
			for i := range events {
				if err := txr.insertEvent(ctx, &events[i]); err != nil {
					return err
				}
			}
			return nil
		})
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "AppendEvents", time.Since(start), map[string]interface{}{
			"count": len(events),
		})
	}

	return err
}

// insertEvent runs the overlap check and insert against the repository's
// current query target, which inside inTx is the transaction.
func (r *SQLiteRepository) insertEvent(ctx context.Context, event *types.Event) error {
	if err := r.checkOverlap(ctx, "AppendEvent", event.StartTime, event.EndTime, 0); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx,
		"INSERT INTO activity_events (start_time, end_time, process_name, window_title, is_idle, project_name) VALUES (?, ?, ?, ?, ?, ?)",
		formatTime(event.StartTime),
		formatTime(event.EndTime),
		r.nullStringFromPtr(event.ProcessName),
		r.nullStringFromPtr(event.WindowTitle),
		event.IsIdle,
		r.nullStringFromPtr(event.ProjectName),
	)
	if err != nil {
		return repoerrors.NewRepositoryErrorWithContext("AppendEvent", err, r.classifyError(err), map[string]string{
			"start": formatTime(event.StartTime),
			"end":   formatTime(event.EndTime),
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return repoerrors.NewRepositoryError("AppendEvent", err, r.classifyError(err))
	}
	event.ID = id

	return nil
}

// GetEvent retrieves a single event by ID
func (r *SQLiteRepository) GetEvent(ctx context.Context, id int64) (*types.Event, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM activity_events WHERE id = ?", id)

	event, err := r.scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repoerrors.HandleNotFound("GetEvent", "event", fmt.Sprintf("%d", id))
		}
		return nil, repoerrors.NewRepositoryError("GetEvent", err, r.classifyError(err))
	}

	return event, nil
}

// UpdateEvent applies a partial update to an event within a transaction.
// The read, bounds validation, overlap check and write all happen under
// the same transaction, so a failed update leaves the store unchanged.
func (r *SQLiteRepository) UpdateEvent(ctx context.Context, id int64, patch *types.EventPatch) (*types.Event, error) {
	start := time.Now()

	if patch == nil {
		err := repoerrors.NewRepositoryError("UpdateEvent", fmt.Errorf("patch is nil"), repoerrors.ErrCodeValidation)
		logging.LogRepositoryError(r.logger, err, "UpdateEvent", map[string]interface{}{"event_id": id})
		return nil, err
	}

	var updated *types.Event
	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		return r.inTx(ctx, "UpdateEvent", func(txr *SQLiteRepository) error {
			event, err := txr.GetEvent(ctx, id)
			if err != nil {
				return err
			}

			// An empty patch is a no-op that returns the current state.
			if patch.IsEmpty() {
				updated = event
				return nil
			}

			patch.Apply(event)

			if err := r.validateEventBounds("UpdateEvent", event.StartTime, event.EndTime); err != nil {
				return err
			}

			if err := txr.checkOverlap(ctx, "UpdateEvent", event.StartTime, event.EndTime, id); err != nil {
				return err
			}

			_, err = txr.q.ExecContext(ctx,
				"UPDATE activity_events SET start_time = ?, end_time = ?, process_name = ?, window_title = ?, is_idle = ?, project_name = ? WHERE id = ?",
				formatTime(event.StartTime),
				formatTime(event.EndTime),
				r.nullStringFromPtr(event.ProcessName),
				r.nullStringFromPtr(event.WindowTitle),
				event.IsIdle,
				r.nullStringFromPtr(event.ProjectName),
				id,
			)
			if err != nil {
				return repoerrors.NewRepositoryErrorWithContext("UpdateEvent", err, r.classifyError(err), map[string]string{
					"event_id": fmt.Sprintf("%d", id),
				})
			}

			updated = event
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	logging.LogRepositoryOperation(r.logger, "UpdateEvent", time.Since(start), map[string]interface{}{
		"event_id": id,
	})
	return updated, nil
}

// ScanEvents returns all events intersecting the half-open window
// [start, end), ordered by start time ascending
func (r *SQLiteRepository) ScanEvents(ctx context.Context, start, end time.Time) ([]types.Event, error) {
	if !end.After(start) {
		return nil, repoerrors.HandleValidationError("ScanEvents", "window",
			fmt.Sprintf("[%s, %s)", formatTime(start), formatTime(end)), "end must be after start")
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM activity_events WHERE start_time < ? AND end_time > ? ORDER BY start_time ASC",
		formatTime(end), formatTime(start))
	if err != nil {
		return nil, repoerrors.NewRepositoryError("ScanEvents", err, r.classifyError(err))
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, repoerrors.NewRepositoryError("ScanEvents", err, r.classifyError(err))
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("ScanEvents", err, r.classifyError(err))
	}

	return events, nil
}

// CountEvents returns the total number of persisted events
func (r *SQLiteRepository) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_events").Scan(&count)
	if err != nil {
		return 0, repoerrors.NewRepositoryError("CountEvents", err, r.classifyError(err))
	}
	return count, nil
}

// checkOverlap fails with an overlap error when any stored event other
// than excludeID intersects (start, end). Touching boundaries are not
// overlaps: an event ending exactly where another begins is allowed.
func (r *SQLiteRepository) checkOverlap(ctx context.Context, op string, start, end time.Time, excludeID int64) error {
	var conflictID int64
	err := r.q.QueryRowContext(ctx,
		"SELECT id FROM activity_events WHERE start_time < ? AND end_time > ? AND id != ? LIMIT 1",
		formatTime(end), formatTime(start), excludeID).Scan(&conflictID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return repoerrors.NewRepositoryError(op, err, r.classifyError(err))
	}

	return repoerrors.HandleOverlapError(op, formatTime(start), formatTime(end), fmt.Sprintf("%d", conflictID))
}

// validateEventBounds rejects events whose end does not come strictly
// after their start. Zero-duration events are never stored.
func (r *SQLiteRepository) validateEventBounds(op string, start, end time.Time) error {
	if !end.After(start) {
		err := repoerrors.NewRepositoryErrorWithContext(op,
			fmt.Errorf("event end must be after start"), repoerrors.ErrCodeValidation, map[string]string{
				"start": formatTime(start),
				"end":   formatTime(end),
			})
		logging.LogRepositoryError(r.logger, err, op, nil)
		return err
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SQLiteRepository) scanEvent(row rowScanner) (*types.Event, error) {
	var (
		event       types.Event
		startStr    string
		endStr      string
		processName sql.NullString
		windowTitle sql.NullString
		projectName sql.NullString
	)

	if err := row.Scan(&event.ID, &startStr, &endStr, &processName, &windowTitle, &event.IsIdle, &projectName); err != nil {
		return nil, err
	}

	startTime, err := parseTime(startStr)
	if err != nil {
		return nil, fmt.Errorf("malformed start_time %q: %w", startStr, err)
	}
	endTime, err := parseTime(endStr)
	if err != nil {
		return nil, fmt.Errorf("malformed end_time %q: %w", endStr, err)
	}

	event.StartTime = startTime
	event.EndTime = endTime
	event.ProcessName = r.ptrFromNullString(processName)
	event.WindowTitle = r.ptrFromNullString(windowTitle)
	event.ProjectName = r.ptrFromNullString(projectName)

	return &event, nil
}
