package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"timeglass/internal/database"
	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
)

// timeLayout is the fixed-width local wall-clock format events and
// mappings are stored with. Fixed width keeps lexicographic order equal
// to chronological order, so SQL comparisons on the raw strings are
// correct.
const timeLayout = "2006-01-02 15:04:05.000000000"

// dbtx abstracts *sql.DB and *sql.Tx so repository methods run the same
// queries inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// BatchConfig holds configuration for batch operations
type BatchConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
}

// DefaultBatchConfig returns sensible defaults for batch operations
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		DefaultBatchSize: 100,
		MaxBatchSize:     1000,
	}
}

// SQLiteRepository implements the Repository interface using SQLite
type SQLiteRepository struct {
	db          *sql.DB
	q           dbtx
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	batchConfig *BatchConfig
	logger      logging.Logger
}

// NewSQLiteRepository creates a new SQLite repository instance
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db := dbService.DB()
	return &SQLiteRepository{
		db:          db,
		q:           db,
		dbService:   dbService,
		retryConfig: repoerrors.DefaultRetryConfig(),
		batchConfig: DefaultBatchConfig(),
		logger:      logger,
	}
}

// NewSQLiteRepositoryWithConfig creates a new SQLite repository instance with custom configuration
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, batchConfig *BatchConfig, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if batchConfig == nil {
		batchConfig = DefaultBatchConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db := dbService.DB()
	return &SQLiteRepository{
		db:          db,
		q:           db,
		dbService:   dbService,
		retryConfig: retryConfig,
		batchConfig: batchConfig,
		logger:      logger,
	}
}

// formatTime renders a timestamp in the storage layout. Stored values
// are local wall-clock time; the timestamp's own location is preserved.
func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// parseTime parses a stored timestamp back into local time.
func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.Local)
}

// NormalizeProcessName canonicalizes a process name for mapping keys and
// lookups: trimmed and lower-cased.
func NormalizeProcessName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *SQLiteRepository) nullStringFromPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func (r *SQLiteRepository) ptrFromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *SQLiteRepository) classifyError(err error) repoerrors.ErrorCode {
	return repoerrors.ClassifyError(err)
}
