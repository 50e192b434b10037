package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteLogger(t *testing.T) *SQLiteLogger {
	t.Helper()
	logger, err := NewSQLiteLogger(SQLiteLoggerConfig{DataDir: t.TempDir(), RetentionDays: 90})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func denialEvent(tenantID, errorType string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		TenantID:  tenantID,
		UserID:    "user-1",
		Allowed:   false,
		ErrorType: errorType,
	}
}

func TestSQLiteLogger_LogAndQuery(t *testing.T) {
	logger := newTestSQLiteLogger(t)

	require.NoError(t, logger.Log(denialEvent("acme", "MISSING_PERMISSION")))
	require.NoError(t, logger.Log(denialEvent("acme", "FEATURE_NOT_AVAILABLE")))
	require.NoError(t, logger.Log(denialEvent("globex", "MISSING_PERMISSION")))

	events, err := logger.Query(QueryFilter{TenantID: "acme"})
	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, "acme", e.TenantID)
		assert.False(t, e.Allowed)
	}

	events, err = logger.Query(QueryFilter{ErrorType: "MISSING_PERMISSION"})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSQLiteLogger_Count(t *testing.T) {
	logger := newTestSQLiteLogger(t)

	require.NoError(t, logger.Log(denialEvent("acme", "MISSING_PERMISSION")))
	allowed := Event{ID: uuid.NewString(), TenantID: "acme", Allowed: true}
	require.NoError(t, logger.Log(allowed))

	count, err := logger.Count(QueryFilter{TenantID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	denied := false
	count, err = logger.Count(QueryFilter{Allowed: &denied})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteLogger_QueryLimitAndOrder(t *testing.T) {
	logger := newTestSQLiteLogger(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		event := denialEvent("acme", "MISSING_PERMISSION")
		event.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, logger.Log(event))
	}

	events, err := logger.Query(QueryFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp) || events[0].Timestamp.Equal(events[1].Timestamp))
}

func TestSQLiteLogger_TimeRangeFilter(t *testing.T) {
	logger := newTestSQLiteLogger(t)

	old := denialEvent("acme", "MISSING_PERMISSION")
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	require.NoError(t, logger.Log(old))
	require.NoError(t, logger.Log(denialEvent("acme", "MISSING_PERMISSION")))

	start := time.Now().Add(-time.Hour)
	events, err := logger.Query(QueryFilter{StartTime: &start})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteLogger_Prune(t *testing.T) {
	logger := newTestSQLiteLogger(t)

	expired := denialEvent("acme", "MISSING_PERMISSION")
	expired.Timestamp = time.Now().AddDate(0, 0, -365)
	require.NoError(t, logger.Log(expired))
	require.NoError(t, logger.Log(denialEvent("acme", "MISSING_PERMISSION")))

	logger.pruneExpired()

	count, err := logger.Count(QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewSQLiteLogger_RequiresDataDir(t *testing.T) {
	_, err := NewSQLiteLogger(SQLiteLoggerConfig{})
	assert.Error(t, err)
}
