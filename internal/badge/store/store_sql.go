package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/device"
	txcontext "badgepass/pkg/platform/tx"
	"badgepass/pkg/requestcontext"
)

//go:embed schema.sql
var schemaSQL string

// Dialect selects driver-specific error classification.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// SQLStore persists badges through database/sql. Attendance idempotency relies
// on the (badge_id, session_id) primary key plus ON CONFLICT DO NOTHING, so the
// database, not the application, arbitrates concurrent check-ins.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	checkins audit.Store
}

type SQLOption func(*SQLStore)

// WithCheckInAudit writes a checkin_recorded event through sink inside the
// attendance transaction. The sink sees the transaction via pkg/platform/tx,
// so the ledger row and its audit row commit or roll back together; a sink
// error fails the check-in.
func WithCheckInAudit(sink audit.Store) SQLOption {
	return func(s *SQLStore) {
		s.checkins = sink
	}
}

// NewSQLStore wraps an open handle. Call Migrate before first use.
func NewSQLStore(db *sql.DB, dialect Dialect, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the embedded schema. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply badge schema: %w", err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func (s *SQLStore) Create(ctx context.Context, badge *models.Badge) error {
	const query = `
		INSERT INTO badges (
			id, participant_id, participant_name, participant_category,
			credential_token, status, issued_at_ms, last_used_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var lastUsed sql.NullInt64
	if badge.LastUsedAt != nil {
		lastUsed = sql.NullInt64{Int64: toMillis(*badge.LastUsedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		badge.ID.String(),
		badge.ParticipantID.String(),
		badge.ParticipantName,
		string(badge.ParticipantCategory),
		badge.CredentialToken,
		string(badge.Status),
		toMillis(badge.IssuedAt),
		lastUsed,
	)
	if err != nil {
		if s.isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (s *SQLStore) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	const query = `
		SELECT id, participant_id, participant_name, participant_category,
		       credential_token, status, issued_at_ms, last_used_at_ms
		FROM badges
		WHERE id = $1
	`
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, badgeID.String()))
	if err != nil {
		return nil, err
	}
	records, err := s.loadAttendance(ctx, badge.ID)
	if err != nil {
		return nil, err
	}
	badge.AttendanceRecords = records
	return badge, nil
}

func (s *SQLStore) FindActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	const query = `
		SELECT id, participant_id, participant_name, participant_category,
		       credential_token, status, issued_at_ms, last_used_at_ms
		FROM badges
		WHERE participant_id = $1 AND status = 'active'
	`
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, participantID.String()))
	if err != nil {
		return nil, err
	}
	records, err := s.loadAttendance(ctx, badge.ID)
	if err != nil {
		return nil, err
	}
	badge.AttendanceRecords = records
	return badge, nil
}

func (s *SQLStore) AppendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The EXISTS guard keeps unknown badges out without relying on FK enforcement.
	const insert = `
		INSERT INTO badge_attendance (badge_id, session_id, checked_in_at_ms, seq)
		SELECT CAST($1 AS TEXT), CAST($2 AS TEXT), CAST($3 AS BIGINT),
		       (SELECT COALESCE(MAX(seq), 0) + 1 FROM badge_attendance WHERE badge_id = $1)
		WHERE EXISTS (SELECT 1 FROM badges WHERE id = $1)
		ON CONFLICT (badge_id, session_id) DO NOTHING
	`
	millis := toMillis(at)
	res, err := tx.ExecContext(ctx, insert, badgeID.String(), session.String(), millis)
	if err != nil {
		return 0, fmt.Errorf("insert attendance: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("attendance rows affected: %w", err)
	}

	if inserted == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM badges WHERE id = $1`, badgeID.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("check badge existence: %w", err)
		}
		return models.AppendAlreadyRecorded, nil
	}

	const touch = `
		UPDATE badges
		SET last_used_at_ms = CASE
			WHEN last_used_at_ms IS NULL OR last_used_at_ms < $1 THEN $1
			ELSE last_used_at_ms
		END
		WHERE id = $2
		RETURNING participant_id
	`
	var participantID string
	if err := tx.QueryRowContext(ctx, touch, millis, badgeID.String()).Scan(&participantID); err != nil {
		return 0, fmt.Errorf("update last used: %w", err)
	}
	if s.checkins != nil {
		event := checkInEvent(ctx, badgeID, participantID, session, at)
		if err := s.checkins.Append(txcontext.WithTx(ctx, tx), event); err != nil {
			return 0, fmt.Errorf("record check-in audit: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attendance: %w", err)
	}
	return models.AppendRecorded, nil
}

func checkInEvent(ctx context.Context, badgeID id.BadgeID, participantID string, session id.SessionID, at time.Time) audit.Event {
	return audit.Event{
		Category:      audit.EventCheckInRecorded.Category(),
		Timestamp:     at,
		Action:        string(audit.EventCheckInRecorded),
		BadgeID:       badgeID.String(),
		ParticipantID: participantID,
		SessionID:     session.String(),
		Decision:      string(models.CheckInSuccess),
		RequestID:     requestcontext.RequestID(ctx),
		ActorID:       requestcontext.Operator(ctx),
		Device:        device.Label(requestcontext.UserAgent(ctx)),
		IP:            requestcontext.ClientIP(ctx),
	}
}

func (s *SQLStore) SetStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE badges SET status = $1 WHERE id = $2`, string(status), badgeID.String())
	if err != nil {
		if s.isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update badge status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) loadAttendance(ctx context.Context, badgeID id.BadgeID) ([]models.AttendanceRecord, error) {
	const query = `
		SELECT session_id, checked_in_at_ms
		FROM badge_attendance
		WHERE badge_id = $1
		ORDER BY seq, checked_in_at_ms, session_id
	`
	rows, err := s.db.QueryContext(ctx, query, badgeID.String())
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := []models.AttendanceRecord{}
	for rows.Next() {
		var session string
		var millis int64
		if err := rows.Scan(&session, &millis); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, models.AttendanceRecord{
			SessionID:   id.SessionID(session),
			CheckedInAt: fromMillis(millis),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

func scanBadge(row *sql.Row) (*models.Badge, error) {
	var (
		rawID, participantID, name, category, token, status string
		issuedAt                                            int64
		lastUsed                                            sql.NullInt64
	)
	err := row.Scan(&rawID, &participantID, &name, &category, &token, &status, &issuedAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan badge: %w", err)
	}
	badgeID, err := id.ParseBadgeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt badge id %q: %w", rawID, err)
	}
	parsedStatus, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt badge status %q: %w", status, err)
	}
	badge := &models.Badge{
		ID:                  badgeID,
		ParticipantID:       id.ParticipantID(participantID),
		ParticipantName:     name,
		ParticipantCategory: models.Category(category),
		CredentialToken:     token,
		Status:              parsedStatus,
		IssuedAt:            fromMillis(issuedAt),
	}
	if lastUsed.Valid {
		t := fromMillis(lastUsed.Int64)
		badge.LastUsedAt = &t
	}
	return badge, nil
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	switch s.dialect {
	case DialectSQLite:
		var sqliteErr *msqlite.Error
		if errors.As(err, &sqliteErr) {
			switch sqliteErr.Code() {
			case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
				return true
			}
		}
		return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
	default:
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	}
}
