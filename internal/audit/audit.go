// Package audit records authorization decisions for later review.
//
// The Logger interface can be backed by different stores. ConsoleLogger
// writes to zerolog and is the default; SQLiteLogger persists events with a
// retention window so operators can answer "who was denied what, and why".
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// Event is a single recorded authorization decision.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Allowed   bool      `json:"allowed"`
	ErrorType string    `json:"error_type,omitempty"`
	Feature   string    `json:"feature,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Action    string    `json:"action,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// QueryFilter selects events when querying a persistent backend.
type QueryFilter struct {
	TenantID  string
	UserID    string
	ErrorType string
	Allowed   *bool
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Logger is the audit backend contract.
type Logger interface {
	// Log records one decision.
	Log(event Event) error

	// Query retrieves events matching the filter. Console loggers return empty.
	Query(filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(filter QueryFilter) (int, error)

	// Close releases any resources held by the logger.
	Close() error
}

var (
	globalLogger Logger
	loggerMu     sync.RWMutex
)

// SetLogger sets the global audit logger. Called during startup; subsequent
// calls replace the previous logger.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	globalLogger = l
}

// GetLogger returns the global audit logger, defaulting to a ConsoleLogger.
func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewConsoleLogger()
	}
	return globalLogger
}

// RecordDecision logs an authorization verdict using the global logger.
func RecordDecision(actor *entitlement.Actor, verdict entitlement.AccessVerdict, requestID string) {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Allowed:   verdict.Allowed,
		RequestID: requestID,
	}
	if actor != nil {
		event.TenantID = actor.TenantID
		event.UserID = actor.UserID
		event.Role = actor.Role
	}
	if verdict.Error != nil {
		event.ErrorType = string(verdict.Error.Type)
		event.Feature = verdict.Error.FeatureName
		event.Details = verdict.Error.Message
		if verdict.Error.RequiredPermission != "" {
			event.Details = verdict.Error.Message + " (required: " + verdict.Error.RequiredPermission + ")"
		}
	}

	if err := GetLogger().Log(event); err != nil {
		log.Error().Err(err).Str("tenant_id", event.TenantID).Msg("Failed to log audit event")
	}
}

// ConsoleLogger implements Logger by writing to zerolog.
type ConsoleLogger struct{}

// NewConsoleLogger creates a console-based audit logger.
func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{}
}

// Log writes the event to zerolog.
func (c *ConsoleLogger) Log(event Event) error {
	logEvent := log.With().
		Str("audit_id", event.ID).
		Str("tenant_id", event.TenantID).
		Str("user_id", event.UserID).
		Str("role", event.Role).
		Str("error_type", event.ErrorType).
		Str("request_id", event.RequestID).
		Time("timestamp", event.Timestamp).
		Logger()

	if event.Allowed {
		logEvent.Info().Msg("Access granted")
	} else {
		logEvent.Warn().Str("details", event.Details).Msg("Access denied")
	}

	return nil
}

// Query returns an empty slice; console logs are not queryable.
func (c *ConsoleLogger) Query(filter QueryFilter) ([]Event, error) {
	return []Event{}, nil
}

// Count returns zero for the console logger.
func (c *ConsoleLogger) Count(filter QueryFilter) (int, error) {
	return 0, nil
}

// Close is a no-op for the console logger.
func (c *ConsoleLogger) Close() error {
	return nil
}
