package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tessera-hq/meshlens/pkg/config"
)

// Store persists audit runs in a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the run history database at the configured
// path. It enables WAL mode and initializes the schema.
func NewStore(cfg config.HistoryConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	s := &Store{db: db, logger: logger}

	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("run history store opened", "path", cfg.Path)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *Store) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError("enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return NewStorageError("set_busy_timeout", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return NewStorageError("enable_foreign_keys", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// SaveRun persists a run summary and its issues in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *RunRecord, issues []IssueRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("save", err)
	}
	defer tx.Rollback()

	var report any
	if len(run.Report) > 0 {
		report = run.Report
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at,
			control_docs, data_docs, parse_errors,
			services, consistent, inconsistent, partial, not_applicable,
			errors, warnings, infos,
			report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.ControlDocs, run.DataDocs, run.ParseErrors,
		run.Services, run.Consistent, run.Inconsistent, run.Partial, run.NotApplicable,
		run.Errors, run.Warnings, run.Infos,
		report,
	)
	if err != nil {
		return NewStorageError("save", err)
	}

	if len(issues) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO issues (
				run_id, namespace, service, function_type,
				severity, field_path, control_value, data_value, description
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return NewStorageError("save", err)
		}
		defer stmt.Close()

		for _, issue := range issues {
			_, err := stmt.ExecContext(ctx,
				run.ID, issue.Namespace, issue.Service, issue.FunctionType,
				issue.Severity, issue.FieldPath, issue.ControlValue, issue.DataValue, issue.Description,
			)
			if err != nil {
				return NewStorageError("save", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("save", err)
	}

	s.logger.Debug("run saved", "run_id", run.ID, "issues", len(issues))

	return nil
}

// GetRun retrieves a run summary by ID. Returns ErrRunNotFound when no run
// has the given ID.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at,
		       control_docs, data_docs, parse_errors,
		       services, consistent, inconsistent, partial, not_applicable,
		       errors, warnings, infos,
		       report
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, NewStorageError("get", err)
	}

	return run, nil
}

// ListRuns returns run summaries matching the query, most recent first.
// The Report field is not populated; use GetRun for the full record.
func (s *Store) ListRuns(ctx context.Context, query Query) ([]*RunRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	sqlQuery := `
		SELECT id, started_at, finished_at,
		       control_docs, data_docs, parse_errors,
		       services, consistent, inconsistent, partial, not_applicable,
		       errors, warnings, infos
		FROM runs
	`
	var args []any
	if query.Since != nil {
		sqlQuery += " WHERE started_at >= ?"
		args = append(args, query.Since.UTC())
	}
	sqlQuery += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("list", err)
	}
	defer rows.Close()

	runs := []*RunRecord{}
	for rows.Next() {
		var run RunRecord
		err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt,
			&run.ControlDocs, &run.DataDocs, &run.ParseErrors,
			&run.Services, &run.Consistent, &run.Inconsistent, &run.Partial, &run.NotApplicable,
			&run.Errors, &run.Warnings, &run.Infos,
		)
		if err != nil {
			return nil, NewStorageError("scan", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("list", err)
	}

	return runs, nil
}

// Issues returns the persisted issues of one run in insertion order.
func (s *Store) Issues(ctx context.Context, runID string) ([]IssueRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, namespace, service, function_type,
		       severity, field_path, control_value, data_value, description
		FROM issues WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, NewStorageError("issues", err)
	}
	defer rows.Close()

	issues := []IssueRecord{}
	for rows.Next() {
		var issue IssueRecord
		var controlValue, dataValue sql.NullString
		err := rows.Scan(
			&issue.RunID, &issue.Namespace, &issue.Service, &issue.FunctionType,
			&issue.Severity, &issue.FieldPath, &controlValue, &dataValue, &issue.Description,
		)
		if err != nil {
			return nil, NewStorageError("scan", err)
		}
		issue.ControlValue = controlValue.String
		issue.DataValue = dataValue.String
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("issues", err)
	}

	return issues, nil
}

// Prune deletes runs started before the cutoff, with their issues.
// Returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", before.UTC())
	if err != nil {
		return 0, NewStorageError("prune", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("prune", err)
	}

	if count > 0 {
		s.logger.Info("pruned old runs", "count", count, "before", before)
	}

	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("close", err)
	}
	return nil
}

// scanRun scans a full run row including the report blob.
func scanRun(row *sql.Row) (*RunRecord, error) {
	var run RunRecord
	var report []byte

	err := row.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt,
		&run.ControlDocs, &run.DataDocs, &run.ParseErrors,
		&run.Services, &run.Consistent, &run.Inconsistent, &run.Partial, &run.NotApplicable,
		&run.Errors, &run.Warnings, &run.Infos,
		&report,
	)
	if err != nil {
		return nil, err
	}

	run.Report = report
	return &run, nil
}
