// Package sqlstore persists audit events next to badge data in Postgres or
// SQLite. Both drivers accept $n placeholders, so one set of queries serves both.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "badgepass/pkg/platform/audit"
	txcontext "badgepass/pkg/platform/tx"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS badge_audit_events (
	id             TEXT PRIMARY KEY,
	category       TEXT NOT NULL,
	occurred_at_ms BIGINT NOT NULL,
	action         TEXT NOT NULL,
	badge_id       TEXT NOT NULL DEFAULT '',
	participant_id TEXT NOT NULL DEFAULT '',
	session_id     TEXT NOT NULL DEFAULT '',
	decision       TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT '',
	actor_id       TEXT NOT NULL DEFAULT '',
	device         TEXT NOT NULL DEFAULT '',
	ip             TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS badge_audit_events_badge ON badge_audit_events (badge_id, occurred_at_ms)`,
}

const selectColumns = `
	SELECT category, occurred_at_ms, action, badge_id, participant_id, session_id,
		   decision, reason, request_id, actor_id, device, ip
	FROM badge_audit_events
`

// Store implements audit.Store and audit.Reader on a SQL database.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate audit schema: %w", err)
		}
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins a transaction carried in ctx so an audit row commits or rolls
// back with the write it describes.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	// v7 ids sort by creation time, breaking ties inside one millisecond.
	rowID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("audit event id: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO badge_audit_events (
			id, category, occurred_at_ms, action, badge_id, participant_id, session_id,
			decision, reason, request_id, actor_id, device, ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		rowID.String(),
		string(category),
		timestamp.UTC().UnixMilli(),
		event.Action,
		event.BadgeID,
		event.ParticipantID,
		event.SessionID,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.Device,
		event.IP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByBadge returns events that reference badgeID, oldest first.
func (s *Store) ListByBadge(ctx context.Context, badgeID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE badge_id = $1
		ORDER BY occurred_at_ms, id
	`, badgeID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns up to limit of the newest events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (`+selectColumns+`
			ORDER BY occurred_at_ms DESC
			LIMIT $1
		) recent
		ORDER BY occurred_at_ms
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category   string
			occurredAt int64
			event      audit.Event
		)
		err := rows.Scan(
			&category,
			&occurredAt,
			&event.Action,
			&event.BadgeID,
			&event.ParticipantID,
			&event.SessionID,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
			&event.Device,
			&event.IP,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Timestamp = time.UnixMilli(occurredAt).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
