// Package audit records access decisions. Every denial is recorded;
// allows are recorded only for mutating methods to keep volume sane.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/atrium/pkg/contextkeys"
	"github.com/openlearnhq/atrium/pkg/observability"
)

// Entry is one recorded access decision.
type Entry struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	AccountID   string    `json:"account_id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Recorder receives decision entries. Record must not fail the request:
// implementations log their own errors and return.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// ShouldRecord reports whether an outcome on a method is worth a trail
// entry.
func ShouldRecord(outcome string, method string) bool {
	if outcome != "allow" {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// LogRecorder writes entries to the structured log.
type LogRecorder struct {
	logger *observability.Logger
}

func NewLogRecorder(logger *observability.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, entry Entry) {
	if entry.RequestID == "" {
		entry.RequestID = contextkeys.GetRequestID(ctx)
	}
	r.logger.WithFields(map[string]interface{}{
		"request_id":   entry.RequestID,
		"account_id":   entry.AccountID,
		"workspace_id": entry.WorkspaceID,
		"method":       entry.Method,
		"path":         entry.Path,
		"outcome":      entry.Outcome,
		"reason":       entry.Reason,
	}).Info("access decision")
}

// PostgresRecorder persists entries to the audit_log table, falling back
// to the log on write failure.
type PostgresRecorder struct {
	db     *sql.DB
	logger *observability.Logger
}

func NewPostgresRecorder(db *sql.DB, logger *observability.Logger) *PostgresRecorder {
	return &PostgresRecorder{db: db, logger: logger}
}

func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = contextkeys.GetRequestID(ctx)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, request_id, account_id, workspace_id, method, path, outcome, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, nullable(entry.RequestID), nullable(entry.AccountID),
		nullable(entry.WorkspaceID), entry.Method, entry.Path,
		entry.Outcome, nullable(entry.Reason), entry.OccurredAt)
	if err != nil && r.logger != nil {
		r.logger.WithError(fmt.Errorf("writing audit entry: %w", err)).Error("audit write failed")
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MultiRecorder fans an entry out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, entry Entry) {
	for _, r := range m {
		r.Record(ctx, entry)
	}
}

// NopRecorder discards all entries, for tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) {}
