package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mirrorscan/mirrorscan/internal/model"
)

// HistoryDB provides SQLite-based storage for audit reports, enabling
// comparison of a project's registry gaps across runs.
//
// Design decision: We store each report as a JSON blob plus a small
// queryable summary rather than normalizing gaps into rows. Reports are
// write-once and read back whole; the summary columns cover everything
// the history listing needs without deserializing full reports.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "mirrorscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; restrict the pool accordingly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Audit reports store complete audit results as JSON plus a
	-- queryable per-category summary.
	CREATE TABLE IF NOT EXISTS audit_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		manifest_path TEXT NOT NULL,
		registry_file TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		gap_count INTEGER NOT NULL,
		approval_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_manifest ON audit_reports(manifest_path);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON audit_reports(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport persists an audit report.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.AuditReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO audit_reports (manifest_path, registry_file, gap_count, approval_count, report_json)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.ManifestPath,
		report.RegistryFile,
		report.TotalGaps(),
		report.ApprovalCount(),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	return nil
}

// LatestReports retrieves the most recent reports for a manifest path,
// newest first, up to limit. A limit of 0 means no limit.
// Returns an empty slice when the project has no audit history.
func (hdb *HistoryDB) LatestReports(ctx context.Context, manifestPath string, limit int) ([]*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE manifest_path = ?
	ORDER BY timestamp DESC, id DESC
	`
	args := []any{manifestPath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var reports []*model.AuditReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.AuditReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, fmt.Errorf("failed to parse stored report: %w", err)
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ReportByID retrieves an audit report by its database ID.
// Returns nil without error when no report has that ID.
func (hdb *HistoryDB) ReportByID(ctx context.Context, id int64) (*model.AuditReport, error) {
	query := `SELECT report_json FROM audit_reports WHERE id = ?`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse stored report: %w", err)
	}

	return &report, nil
}

// ListProjects returns every manifest path with audit history, sorted.
func (hdb *HistoryDB) ListProjects(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT manifest_path FROM audit_reports
	ORDER BY manifest_path
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// ReportMetadata contains summary information about a stored audit report.
// This is used for displaying audit history without loading full reports.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// ManifestPath is the audited project manifest.
	ManifestPath string

	// RegistryFile is the registry listing the audit ran against.
	RegistryFile string

	// Timestamp is when the audit was performed.
	Timestamp time.Time

	// GapCount is the number of gaps the audit found.
	GapCount int

	// ApprovalCount is the number of gaps requiring approval.
	ApprovalCount int
}

// History retrieves audit metadata for a manifest path, newest first.
// This is more efficient than LatestReports when only metadata is needed.
func (hdb *HistoryDB) History(ctx context.Context, manifestPath string) ([]ReportMetadata, error) {
	query := `
	SELECT id, manifest_path, registry_file, timestamp, gap_count, approval_count
	FROM audit_reports
	WHERE manifest_path = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var timestamp string

		if err := rows.Scan(&meta.ID, &meta.ManifestPath, &meta.RegistryFile, &timestamp, &meta.GapCount, &meta.ApprovalCount); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. Returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
