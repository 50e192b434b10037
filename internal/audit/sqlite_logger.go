package audit

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteLoggerConfig configures the SQLite audit logger.
type SQLiteLoggerConfig struct {
	DataDir       string // Directory for audit.db
	RetentionDays int    // Days to keep events (default: 90, 0 = forever)
}

// SQLiteLogger implements Logger with persistent SQLite storage.
type SQLiteLogger struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewSQLiteLogger creates a SQLite-backed audit logger under dataDir.
func NewSQLiteLogger(cfg SQLiteLoggerConfig) (*SQLiteLogger, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	auditDir := filepath.Join(cfg.DataDir, "audit")
	if err := os.MkdirAll(auditDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	dbPath := filepath.Join(auditDir, "audit.db")

	// Open database with pragmas in DSN so every pool connection is configured
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite works best with a single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	retentionDays := cfg.RetentionDays
	if retentionDays == 0 {
		retentionDays = 90
	}

	l := &SQLiteLogger{
		db:            db,
		dbPath:        dbPath,
		retentionDays: retentionDays,
		stopChan:      make(chan struct{}),
	}

	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	if retentionDays > 0 {
		l.wg.Add(1)
		go l.retentionWorker()
	}

	log.Info().
		Str("dbPath", dbPath).
		Int("retentionDays", retentionDays).
		Msg("SQLite audit logger initialized")

	return l, nil
}

func (l *SQLiteLogger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id         TEXT PRIMARY KEY,
		timestamp  INTEGER NOT NULL,
		tenant_id  TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT '',
		allowed    INTEGER NOT NULL,
		error_type TEXT NOT NULL DEFAULT '',
		feature    TEXT NOT NULL DEFAULT '',
		resource   TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		details    TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_events(tenant_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Log persists one event.
func (l *SQLiteLogger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO audit_events
			(id, timestamp, tenant_id, user_id, role, allowed, error_type, feature, resource, action, request_id, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.Unix(),
		event.TenantID,
		event.UserID,
		event.Role,
		boolToInt(event.Allowed),
		event.ErrorType,
		event.Feature,
		event.Resource,
		event.Action,
		event.RequestID,
		event.Details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query retrieves events matching the filter, newest first.
func (l *SQLiteLogger) Query(filter QueryFilter) ([]Event, error) {
	where, args := buildFilter(filter)

	query := "SELECT id, timestamp, tenant_id, user_id, role, allowed, error_type, feature, resource, action, request_id, details FROM audit_events" +
		where + " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var allowed int
		if err := rows.Scan(&e.ID, &ts, &e.TenantID, &e.UserID, &e.Role, &allowed,
			&e.ErrorType, &e.Feature, &e.Resource, &e.Action, &e.RequestID, &e.Details); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.Allowed = allowed != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of events matching the filter.
func (l *SQLiteLogger) Count(filter QueryFilter) (int, error) {
	where, args := buildFilter(filter)

	var count int
	err := l.db.QueryRow("SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

func buildFilter(filter QueryFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.TenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ErrorType != "" {
		clauses = append(clauses, "error_type = ?")
		args = append(args, filter.ErrorType)
	}
	if filter.Allowed != nil {
		clauses = append(clauses, "allowed = ?")
		args = append(args, boolToInt(*filter.Allowed))
	}
	if filter.StartTime != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.StartTime.Unix())
	}
	if filter.EndTime != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.EndTime.Unix())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// retentionWorker deletes events older than the retention window once a day.
func (l *SQLiteLogger) retentionWorker() {
	defer l.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	l.pruneExpired()

	for {
		select {
		case <-ticker.C:
			l.pruneExpired()
		case <-l.stopChan:
			return
		}
	}
}

func (l *SQLiteLogger) pruneExpired() {
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays).Unix()
	result, err := l.db.Exec(`DELETE FROM audit_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune expired audit events")
		return
	}
	if deleted, _ := result.RowsAffected(); deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Pruned expired audit events")
	}
}

// Close stops the retention worker and releases the database handle.
func (l *SQLiteLogger) Close() error {
	select {
	case <-l.stopChan:
	default:
		close(l.stopChan)
	}
	l.wg.Wait()
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
