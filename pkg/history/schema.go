package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the run history schema.
const Schema = `
-- Audit runs table
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,

    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,

    -- Input counts
    control_docs INTEGER NOT NULL,
    data_docs INTEGER NOT NULL,
    parse_errors INTEGER NOT NULL,

    -- Services by consistency status
    services INTEGER NOT NULL,
    consistent INTEGER NOT NULL,
    inconsistent INTEGER NOT NULL,
    partial INTEGER NOT NULL,
    not_applicable INTEGER NOT NULL,

    -- Issues by severity
    errors INTEGER NOT NULL,
    warnings INTEGER NOT NULL,
    infos INTEGER NOT NULL,

    -- Serialized verdict tree (JSON), optional
    report BLOB
);

-- Per-issue rows, denormalized for querying without decoding report JSON
CREATE TABLE IF NOT EXISTS issues (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    namespace TEXT NOT NULL,
    service TEXT NOT NULL,
    function_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    field_path TEXT NOT NULL,
    control_value TEXT,
    data_value TEXT,
    description TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_issues_run_id ON issues(run_id);
CREATE INDEX IF NOT EXISTS idx_issues_service ON issues(namespace, service);
CREATE INDEX IF NOT EXISTS idx_issues_severity ON issues(severity);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
