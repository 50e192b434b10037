package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// SQLiteStore is a local read model of tenant subscriptions used by
// self-hosted deployments that have no hosted billing service.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and if needed creates) the subscription read model
// under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	billingDir := filepath.Join(dataDir, "billing")
	if err := os.MkdirAll(billingDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create billing directory: %w", err)
	}

	dbPath := filepath.Join(billingDir, "subscriptions.db")

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
		return nil, fmt.Errorf("failed to open billing database: %w", err)
	}

	// SQLite works best with a single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		tenant_id          TEXT PRIMARY KEY,
		status             TEXT NOT NULL,
		plan               TEXT NOT NULL DEFAULT '',
		trial_end          INTEGER,
		current_period_end INTEGER,
		updated_at         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_status ON subscriptions(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create billing schema: %w", err)
	}
	return nil
}

// SubscriptionRecord returns the tenant's subscription, or (nil, nil) when no
// row exists.
func (s *SQLiteStore) SubscriptionRecord(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, plan, trial_end, current_period_end
		FROM subscriptions WHERE tenant_id = ?`, tenantID)

	var (
		status, plan     string
		trialEnd         sql.NullInt64
		currentPeriodEnd sql.NullInt64
	)
	if err := row.Scan(&status, &plan, &trialEnd, &currentPeriodEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read subscription for tenant %q: %w", tenantID, err)
	}

	record := &entitlement.SubscriptionRecord{
		Status: entitlement.SubscriptionStatus(status),
		Plan:   plan,
	}
	if trialEnd.Valid {
		t := time.Unix(trialEnd.Int64, 0).UTC()
		record.TrialEnd = &t
	}
	if currentPeriodEnd.Valid {
		t := time.Unix(currentPeriodEnd.Int64, 0).UTC()
		record.CurrentPeriodEnd = &t
	}

	return normalizeRecord(record), nil
}

// UpsertSubscription writes the tenant's subscription row. Billing webhook
// handlers call this to keep the read model current.
func (s *SQLiteStore) UpsertSubscription(ctx context.Context, tenantID string, record *entitlement.SubscriptionRecord) error {
	if record == nil {
		return errors.New("subscription record is required")
	}

	var trialEnd, currentPeriodEnd sql.NullInt64
	if record.TrialEnd != nil {
		trialEnd = sql.NullInt64{Int64: record.TrialEnd.Unix(), Valid: true}
	}
	if record.CurrentPeriodEnd != nil {
		currentPeriodEnd = sql.NullInt64{Int64: record.CurrentPeriodEnd.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (tenant_id, status, plan, trial_end, current_period_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			status = excluded.status,
			plan = excluded.plan,
			trial_end = excluded.trial_end,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`,
		tenantID,
		string(entitlement.NormalizeStatus(record.Status)),
		record.Plan,
		trialEnd,
		currentPeriodEnd,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write subscription for tenant %q: %w", tenantID, err)
	}
	return nil
}

// DeleteSubscription removes the tenant's subscription row.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, tenantID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("delete subscription for tenant %q: %w", tenantID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
