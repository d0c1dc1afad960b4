// Package domain holds typed identifiers shared across badge modules.
//
// Identifiers are parsed at trust boundaries (HTTP requests, decoded credential
// tokens, directory responses) and passed around as distinct types afterwards so
// a participant id can never be handed to an API expecting a badge id.
package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "badgepass/pkg/domain-errors"
)

const (
	// MaxParticipantIDLength bounds opaque directory identifiers.
	MaxParticipantIDLength = 64
	// MaxSessionIDLength bounds operator-supplied attendance session keys.
	MaxSessionIDLength = 128
)

// BadgeID identifies an issued badge. Generated at issuance, never reused.
type BadgeID uuid.UUID

// NewBadgeID returns a fresh random badge identifier.
func NewBadgeID() BadgeID {
	return BadgeID(uuid.New())
}

// ParseBadgeID parses a canonical UUID string into a BadgeID.
//
// Errors: CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseBadgeID(s string) (BadgeID, error) {
	if s == "" {
		return BadgeID{}, dErrors.New(dErrors.CodeInvalidInput, "badge id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return BadgeID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid badge id format")
	}
	if parsed == uuid.Nil {
		return BadgeID{}, dErrors.New(dErrors.CodeInvalidInput, "badge id cannot be nil")
	}
	return BadgeID(parsed), nil
}

func (id BadgeID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the id is the zero value.
func (id BadgeID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParticipantID is the opaque key of a registration in the participant directory.
// Invariant: 1..64 characters drawn from letters, digits, '-', '_', '.', ':'.
type ParticipantID string

// ParseParticipantID validates an opaque directory identifier.
//
// Errors: CodeInvalidInput when empty, too long, or containing characters outside
// the allowed set.
func ParseParticipantID(s string) (ParticipantID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant id cannot be empty")
	}
	if len(s) > MaxParticipantIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant id too long")
	}
	for _, r := range s {
		if !isParticipantIDRune(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "participant id contains invalid characters")
		}
	}
	return ParticipantID(s), nil
}

func isParticipantIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.' || r == ':':
		return true
	default:
		return false
	}
}

func (id ParticipantID) String() string {
	return string(id)
}

// SessionID is an operator-supplied attendance context such as "morning-keynote".
// It carries no semantics beyond being the check-in deduplication key.
type SessionID string

// ParseSessionID trims surrounding whitespace and validates the session key.
//
// Errors: CodeInvalidInput when empty, longer than MaxSessionIDLength bytes, not
// valid UTF-8, or containing control characters.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id cannot be empty")
	}
	if len(s) > MaxSessionIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "session id contains control characters")
		}
	}
	return SessionID(s), nil
}

func (id SessionID) String() string {
	return string(id)
}
