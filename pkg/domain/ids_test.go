package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "badgepass/pkg/domain-errors"
)

// TestParseBadgeID_Invariants validates the parsing invariant:
// "badge IDs must be valid, non-empty, non-nil UUIDs"
func TestParseBadgeID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBadgeID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseBadgeID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseBadgeID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseBadgeID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, BadgeID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
	})
}

// TestParseParticipantID_TrustBoundary covers identifiers arriving from decoded
// tokens and HTTP bodies.
func TestParseParticipantID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE badges;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "p1\x00", true},
		{"Oversized input", strings.Repeat("a", MaxParticipantIDLength+1), true},
		{"Whitespace", "p 1", true},
		{"Mongo operator", "$ne", true},
		{"Email address", "ada@example.org", true},
		{"Empty string", "", true},

		{"Object id hex", "65a1f0c2e4b0a1b2c3d4e5f6", false},
		{"Prefixed key", "reg:2025-001", false},
		{"Max length", strings.Repeat("a", MaxParticipantIDLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseParticipantID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestParseSessionID(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		id, err := ParseSessionID("  morning-keynote\n")
		require.NoError(t, err)
		assert.Equal(t, SessionID("morning-keynote"), id)
	})

	t.Run("accepts unicode labels", func(t *testing.T) {
		_, err := ParseSessionID("Día 2 · Sala A")
		require.NoError(t, err)
	})

	for _, input := range []string{"", "   ", "a\x07b", strings.Repeat("s", MaxSessionIDLength+1), string([]byte{0xff, 0xfe})} {
		t.Run("rejects "+strings.ToValidUTF8(input, "?"), func(t *testing.T) {
			_, err := ParseSessionID(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

// TestTypeDistinction documents that badge and participant identifiers do not mix.
func TestTypeDistinction(t *testing.T) {
	// The following would fail to compile:
	// var b BadgeID = ParticipantID("p1")
	// var p ParticipantID = NewBadgeID()
	badgeID := NewBadgeID()
	assert.False(t, badgeID.IsNil())
	assert.True(t, BadgeID{}.IsNil())
}
