package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers credential lifecycle changes that must be
	// retained: issuance, revocation, reinstatement.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers scans that were refused. Bursts of rejections
	// for one badge are the signal for a cloned or forged credential.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine check-ins.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory `json:"category"`
	Timestamp     time.Time     `json:"timestamp"`
	Action        string        `json:"action"`
	BadgeID       string        `json:"badge_id,omitempty"`
	ParticipantID string        `json:"participant_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	Decision      string        `json:"decision,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	// ActorID is the admin or scanner operator who triggered the action.
	ActorID string `json:"actor_id,omitempty"`
	// Device is a short label derived from the scanner's User-Agent.
	Device string `json:"device,omitempty"`
	IP     string `json:"ip,omitempty"`
}

type AuditEvent string

const (
	EventBadgeIssued      AuditEvent = "badge_issued"
	EventBadgeRevoked     AuditEvent = "badge_revoked"
	EventBadgeReinstated  AuditEvent = "badge_reinstated"
	EventCheckInRecorded  AuditEvent = "checkin_recorded"
	EventCheckInDuplicate AuditEvent = "checkin_duplicate"
	EventScanRejected     AuditEvent = "scan_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventBadgeIssued:      CategoryCompliance,
	EventBadgeRevoked:     CategoryCompliance,
	EventBadgeReinstated:  CategoryCompliance,
	EventScanRejected:     CategorySecurity,
	EventCheckInRecorded:  CategoryOperations,
	EventCheckInDuplicate: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists the history of one badge, oldest first.
type Reader interface {
	ListByBadge(ctx context.Context, badgeID string) ([]Event, error)
}
