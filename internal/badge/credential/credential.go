// Package credential encodes a badge's identity fields into the token carried by
// the scannable artifact, and decodes scanned text back into those fields.
//
// The token is a locator, not proof of anything: it carries no signature, and
// every decoded field must be re-checked against the badge store and the
// participant directory before it informs a decision.
//
// Wire format: a compact JSON object with exactly the keys badgeId,
// participantId, participantName, participantCategory and issuedAt (unix
// millis). Non-ASCII characters are emitted as \uXXXX escapes so the token is
// printable ASCII. Decoders ignore unknown keys and reject missing known keys.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
)

const (
	// MaxTokenLength is the largest token Encode will produce.
	MaxTokenLength = 512
	// maxScanLength bounds raw scanner input before any parsing happens.
	maxScanLength = 4 * MaxTokenLength
)

var (
	// ErrMalformedToken wraps every decode failure.
	ErrMalformedToken = errors.New("malformed credential token")
	// ErrTokenTooLong is returned by Encode when the identity does not fit.
	ErrTokenTooLong = errors.New("credential token exceeds maximum length")
	// ErrInvalidIdentity is returned by Encode for identities that could not round-trip.
	ErrInvalidIdentity = errors.New("invalid credential identity")
)

// Identity is the set of fields carried by a credential token.
type Identity struct {
	BadgeID             id.BadgeID
	ParticipantID       id.ParticipantID
	ParticipantName     string
	ParticipantCategory string
	IssuedAtUnixMillis  int64
}

// wireToken uses pointers so absent keys and JSON nulls are distinguishable
// from zero values.
type wireToken struct {
	BadgeID             *string `json:"badgeId"`
	ParticipantID       *string `json:"participantId"`
	ParticipantName     *string `json:"participantName"`
	ParticipantCategory *string `json:"participantCategory"`
	IssuedAt            *int64  `json:"issuedAt"`
}

// Encode serializes identity into a printable-ASCII token.
func Encode(identity Identity) (string, error) {
	if err := validate(identity); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	badgeID := identity.BadgeID.String()
	participantID := identity.ParticipantID.String()
	issuedAt := identity.IssuedAtUnixMillis
	raw, err := json.Marshal(wireToken{
		BadgeID:             &badgeID,
		ParticipantID:       &participantID,
		ParticipantName:     &identity.ParticipantName,
		ParticipantCategory: &identity.ParticipantCategory,
		IssuedAt:            &issuedAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}
	token := asciiEscape(raw)
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}
	return token, nil
}

// Decode parses scanned text into an Identity. Surrounding whitespace is ignored
// because scanners commonly append line terminators.
func Decode(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, malformed("empty token")
	}
	if len(raw) > maxScanLength {
		return Identity{}, malformed("token too long")
	}
	if !utf8.ValidString(raw) {
		return Identity{}, malformed("token is not valid UTF-8")
	}

	var wire wireToken
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Identity{}, malformed("not a credential object")
	}
	switch {
	case wire.BadgeID == nil:
		return Identity{}, malformed("missing badgeId")
	case wire.ParticipantID == nil:
		return Identity{}, malformed("missing participantId")
	case wire.ParticipantName == nil:
		return Identity{}, malformed("missing participantName")
	case wire.ParticipantCategory == nil:
		return Identity{}, malformed("missing participantCategory")
	case wire.IssuedAt == nil:
		return Identity{}, malformed("missing issuedAt")
	}

	badgeID, err := id.ParseBadgeID(*wire.BadgeID)
	if err != nil {
		return Identity{}, malformed("invalid badgeId")
	}
	participantID, err := id.ParseParticipantID(*wire.ParticipantID)
	if err != nil {
		return Identity{}, malformed("invalid participantId")
	}
	identity := Identity{
		BadgeID:             badgeID,
		ParticipantID:       participantID,
		ParticipantName:     *wire.ParticipantName,
		ParticipantCategory: *wire.ParticipantCategory,
		IssuedAtUnixMillis:  *wire.IssuedAt,
	}
	if err := validate(identity); err != nil {
		return Identity{}, malformed(err.Error())
	}
	return identity, nil
}

func validate(identity Identity) error {
	if identity.BadgeID.IsNil() {
		return errors.New("badge id is required")
	}
	if _, err := id.ParseParticipantID(identity.ParticipantID.String()); err != nil {
		return errors.New("participant id is invalid")
	}
	if err := models.ValidateSnapshot(identity.ParticipantName, identity.ParticipantCategory); err != nil {
		return err
	}
	if identity.IssuedAtUnixMillis <= 0 {
		return errors.New("issuedAt must be positive")
	}
	return nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedToken, reason)
}

// asciiEscape rewrites every non-ASCII rune of a JSON document as a \uXXXX
// escape (surrogate pairs above the BMP). json.Marshal only emits non-ASCII
// bytes inside string literals, so the document stays equivalent.
func asciiEscape(doc []byte) string {
	var b strings.Builder
	b.Grow(len(doc))
	for len(doc) > 0 {
		r, size := utf8.DecodeRune(doc)
		doc = doc[size:]
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			writeUnicodeEscape(&b, r1)
			writeUnicodeEscape(&b, r2)
			continue
		}
		writeUnicodeEscape(&b, r)
	}
	return b.String()
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	hex := strconv.FormatInt(int64(r), 16)
	b.WriteString(`\u`)
	b.WriteString(strings.Repeat("0", 4-len(hex)))
	b.WriteString(hex)
}
