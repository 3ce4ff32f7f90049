package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/types"
)

const mappingColumns = "id, process_name, window_title, project_name, created_at, updated_at"

// UpsertMapping inserts a mapping or, when a mapping with the same
// (process, window) key exists, replaces its project name. The process
// name is normalized before storage; the window title is kept verbatim
// because titles are matched exactly. An empty window title is the
// process-level default.
func (r *SQLiteRepository) UpsertMapping(ctx context.Context, mapping *types.ProjectMapping) error {
	start := time.Now()

	if mapping == nil {
		err := repoerrors.NewRepositoryError("UpsertMapping", fmt.Errorf("mapping is nil"), repoerrors.ErrCodeValidation)
		logging.LogRepositoryError(r.logger, err, "UpsertMapping", nil)
		return err
	}

	processName := NormalizeProcessName(mapping.ProcessName)
	projectName := strings.TrimSpace(mapping.ProjectName)

	validationContext := map[string]string{
		"process_name": processName,
		"window_title": mapping.WindowTitle,
		"project_name": projectName,
	}

	if processName == "" {
		err := repoerrors.NewRepositoryErrorWithContext("UpsertMapping",
			fmt.Errorf("process name is empty or whitespace"), repoerrors.ErrCodeValidation, validationContext)
		logging.LogRepositoryError(r.logger, err, "UpsertMapping", nil)
		return err
	}

	if projectName == "" {
		err := repoerrors.NewRepositoryErrorWithContext("UpsertMapping",
			fmt.Errorf("project name is empty or whitespace"), repoerrors.ErrCodeValidation, validationContext)
		logging.LogRepositoryError(r.logger, err, "UpsertMapping", nil)
		return err
	}

	now := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		return r.inTx(ctx, "UpsertMapping", func(txr *SQLiteRepository) error {
			_, err := txr.q.ExecContext(ctx,
				`INSERT INTO project_mappings (process_name, window_title, project_name, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(process_name, window_title)
				 DO UPDATE SET project_name = excluded.project_name, updated_at = excluded.updated_at`,
				processName, mapping.WindowTitle, projectName, formatTime(now), formatTime(now))
			if err != nil {
				return repoerrors.NewRepositoryErrorWithContext("UpsertMapping", err, r.classifyError(err), validationContext)
			}

			// Read the row back to surface the ID and timestamps of
			// whichever row the upsert landed on.
			row := txr.q.QueryRowContext(ctx,
				"SELECT "+mappingColumns+" FROM project_mappings WHERE process_name = ? AND window_title = ?",
				processName, mapping.WindowTitle)

			stored, err := r.scanMapping(row)
			if err != nil {
				return repoerrors.NewRepositoryError("UpsertMapping", err, r.classifyError(err))
			}
			*mapping = *stored

			return nil
		})
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "UpsertMapping", time.Since(start), map[string]interface{}{
			"process_name": processName,
			"project_name": projectName,
		})
	}

	return err
}

// ListMappings returns all mappings ordered by process name then window title
func (r *SQLiteRepository) ListMappings(ctx context.Context) ([]types.ProjectMapping, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+mappingColumns+" FROM project_mappings ORDER BY process_name ASC, window_title ASC")
	if err != nil {
		return nil, repoerrors.NewRepositoryError("ListMappings", err, r.classifyError(err))
	}
	defer rows.Close()

	var mappings []types.ProjectMapping
	for rows.Next() {
		mapping, err := r.scanMapping(rows)
		if err != nil {
			return nil, repoerrors.NewRepositoryError("ListMappings", err, r.classifyError(err))
		}
		mappings = append(mappings, *mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("ListMappings", err, r.classifyError(err))
	}

	return mappings, nil
}

// DeleteMapping removes a mapping by ID
func (r *SQLiteRepository) DeleteMapping(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM project_mappings WHERE id = ?", id)
	if err != nil {
		return repoerrors.NewRepositoryError("DeleteMapping", err, r.classifyError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repoerrors.NewRepositoryError("DeleteMapping", err, r.classifyError(err))
	}
	if affected == 0 {
		return repoerrors.HandleNotFound("DeleteMapping", "mapping", fmt.Sprintf("%d", id))
	}

	return nil
}

// ResolveProject resolves the project for a (process, window) pair.
// An exact (process, window) mapping wins; otherwise the process-level
// default (empty window title) applies. Returns nil when neither exists.
// Both candidates are fetched in one query: ordering by window title
// descending puts the exact match, when present, before the default.
func (r *SQLiteRepository) ResolveProject(ctx context.Context, processName, windowTitle string) (*string, error) {
	normalized := NormalizeProcessName(processName)
	if normalized == "" {
		return nil, nil
	}

	var projectName string
	err := r.q.QueryRowContext(ctx,
		`SELECT project_name FROM project_mappings
		 WHERE process_name = ? AND window_title IN (?, '')
		 ORDER BY window_title DESC LIMIT 1`,
		normalized, windowTitle).Scan(&projectName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoerrors.NewRepositoryError("ResolveProject", err, r.classifyError(err))
	}

	return &projectName, nil
}

// ListProjects returns the distinct project names across all mappings.
// Names differing only in case collapse to the first stored spelling.
func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT project_name FROM project_mappings ORDER BY project_name COLLATE NOCASE ASC, id ASC")
	if err != nil {
		return nil, repoerrors.NewRepositoryError("ListProjects", err, r.classifyError(err))
	}
	defer rows.Close()

	var projects []string
	seen := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, repoerrors.NewRepositoryError("ListProjects", err, r.classifyError(err))
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		projects = append(projects, name)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("ListProjects", err, r.classifyError(err))
	}

	return projects, nil
}

func (r *SQLiteRepository) scanMapping(row rowScanner) (*types.ProjectMapping, error) {
	var (
		mapping    types.ProjectMapping
		createdStr string
		updatedStr string
	)

	if err := row.Scan(&mapping.ID, &mapping.ProcessName, &mapping.WindowTitle, &mapping.ProjectName, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	createdAt, err := parseTime(createdStr)
	if err != nil {
		return nil, fmt.Errorf("malformed created_at %q: %w", createdStr, err)
	}
	updatedAt, err := parseTime(updatedStr)
	if err != nil {
		return nil, fmt.Errorf("malformed updated_at %q: %w", updatedStr, err)
	}

	mapping.CreatedAt = createdAt
	mapping.UpdatedAt = updatedAt

	return &mapping, nil
}
