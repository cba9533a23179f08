// Package audit appends human-readable action records to the auditLogs
// collection. Entries are write-only from the engine's point of view.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

type Logger struct {
	store store.Store
	now   func() time.Time
}

func NewLogger(st store.Store) *Logger {
	return &Logger{store: st, now: time.Now}
}

// Record writes one audit entry. Failures are logged and swallowed so
// auditing never fails the action it describes.
func (l *Logger) Record(ctx context.Context, user, action, details, severity string) {
	entry := model.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		Details:   details,
		Timestamp: l.now(),
		User:      user,
		Severity:  severity,
	}
	if err := l.store.Update(ctx, []store.Op{store.Put(store.CollAuditLogs, entry.ID, entry)}); err != nil {
		log.Printf("ERROR: audit record %s: %v", action, err)
	}
}

func (l *Logger) Info(ctx context.Context, user, action, details string) {
	l.Record(ctx, user, action, details, enum.SeverityInfo)
}

func (l *Logger) Warning(ctx context.Context, user, action, details string) {
	l.Record(ctx, user, action, details, enum.SeverityWarning)
}

func (l *Logger) Critical(ctx context.Context, user, action, details string) {
	l.Record(ctx, user, action, details, enum.SeverityCritical)
}
