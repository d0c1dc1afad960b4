package models

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
)

const (
	MaxParticipantNameLength     = 128
	MaxParticipantCategoryLength = 64
)

// Status is the badge lifecycle state. Only active badges verify.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// ParseStatus validates a status string from storage or admin input.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusRevoked:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid badge status")
	}
}

func (s Status) String() string {
	return string(s)
}

// Category is the participant's role snapshot, used for display and template
// selection. The set is open; these are the values the directory commonly reports.
type Category string

const (
	CategoryPresenter Category = "Presenter"
	CategoryStudent   Category = "Student"
	CategoryAttendee  Category = "Attendee"
)

// AttendanceRecord is one ledger entry. At most one exists per session.
type AttendanceRecord struct {
	SessionID   id.SessionID `json:"session_id"`
	CheckedInAt time.Time    `json:"checked_in_at"`
}

// Badge is one participant's issued credential.
//
// Invariants:
//   - ID, ParticipantID, CredentialToken and IssuedAt never change after issuance
//   - ParticipantName and ParticipantCategory are a snapshot taken at issuance
//   - AttendanceRecords is append-only with at most one entry per SessionID
//   - LastUsedAt tracks the most recent recorded check-in
type Badge struct {
	ID                  id.BadgeID         `json:"id"`
	ParticipantID       id.ParticipantID   `json:"participant_id"`
	ParticipantName     string             `json:"participant_name"`
	ParticipantCategory Category           `json:"participant_category"`
	CredentialToken     string             `json:"credential_token"`
	Status              Status             `json:"status"`
	IssuedAt            time.Time          `json:"issued_at"`
	LastUsedAt          *time.Time         `json:"last_used_at,omitempty"`
	AttendanceRecords   []AttendanceRecord `json:"attendance_records"`
}

// NewBadge builds an active badge with an empty ledger.
//
// Errors: CodeInvariantViolation when an identity field is missing or out of bounds.
func NewBadge(
	badgeID id.BadgeID,
	participantID id.ParticipantID,
	name string,
	category Category,
	token string,
	issuedAt time.Time,
) (*Badge, error) {
	if badgeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "badge id is required")
	}
	if participantID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "participant id is required")
	}
	if err := ValidateSnapshot(name, string(category)); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential token is required")
	}
	if issuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issued_at is required")
	}
	return &Badge{
		ID:                  badgeID,
		ParticipantID:       participantID,
		ParticipantName:     name,
		ParticipantCategory: category,
		CredentialToken:     token,
		Status:              StatusActive,
		IssuedAt:            issuedAt,
		AttendanceRecords:   []AttendanceRecord{},
	}, nil
}

// ValidateSnapshot checks the denormalized identity fields.
func ValidateSnapshot(name, category string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant name is required")
	}
	if utf8.RuneCountInString(name) > MaxParticipantNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant name too long")
	}
	if strings.TrimSpace(category) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant category is required")
	}
	if utf8.RuneCountInString(category) > MaxParticipantCategoryLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant category too long")
	}
	if !printable(name) || !printable(category) {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant snapshot contains control characters")
	}
	return nil
}

func printable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func (b *Badge) IsActive() bool {
	return b.Status == StatusActive
}

// HasAttended reports whether the ledger already holds an entry for session.
func (b *Badge) HasAttended(session id.SessionID) bool {
	return slices.ContainsFunc(b.AttendanceRecords, func(r AttendanceRecord) bool {
		return r.SessionID == session
	})
}

// RecordAttendance appends a ledger entry unless one already exists for the
// session. Callers must hold whatever lock makes check-and-append atomic.
func (b *Badge) RecordAttendance(session id.SessionID, at time.Time) AppendResult {
	if b.HasAttended(session) {
		return AppendAlreadyRecorded
	}
	b.AttendanceRecords = append(b.AttendanceRecords, AttendanceRecord{SessionID: session, CheckedInAt: at})
	if b.LastUsedAt == nil || at.After(*b.LastUsedAt) {
		last := at
		b.LastUsedAt = &last
	}
	return AppendRecorded
}

// Clone returns a deep copy so stores never hand out shared state.
func (b *Badge) Clone() *Badge {
	if b == nil {
		return nil
	}
	c := *b
	if b.LastUsedAt != nil {
		t := *b.LastUsedAt
		c.LastUsedAt = &t
	}
	c.AttendanceRecords = slices.Clone(b.AttendanceRecords)
	if c.AttendanceRecords == nil {
		c.AttendanceRecords = []AttendanceRecord{}
	}
	return &c
}

// AppendResult is the outcome of a conditional attendance append.
type AppendResult int

const (
	AppendRecorded AppendResult = iota + 1
	AppendAlreadyRecorded
)

func (r AppendResult) String() string {
	switch r {
	case AppendRecorded:
		return "recorded"
	case AppendAlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}
