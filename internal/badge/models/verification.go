package models

import id "badgepass/pkg/domain"

// VerificationOutcome is the terminal state of a scan.
type VerificationOutcome string

const (
	OutcomeVerified VerificationOutcome = "verified"
	OutcomeRejected VerificationOutcome = "rejected"
)

// RejectReason explains a rejected scan. Reasons are checked in declaration order.
type RejectReason string

const (
	RejectMalformedToken      RejectReason = "malformed_token"
	RejectUnknownBadge        RejectReason = "unknown_badge"
	RejectBadgeRevoked        RejectReason = "badge_revoked"
	RejectTokenMismatch       RejectReason = "token_mismatch"
	RejectParticipantNotFound RejectReason = "participant_not_found"
)

// VerificationResult carries the badge's identity snapshot when verified.
// Badge is also set for BadgeRevoked and TokenMismatch so admins can see
// which credential was presented.
type VerificationResult struct {
	Outcome VerificationOutcome
	Reason  RejectReason
	Badge   *Badge
}

func Verified(badge *Badge) *VerificationResult {
	return &VerificationResult{Outcome: OutcomeVerified, Badge: badge}
}

func Rejected(reason RejectReason, badge *Badge) *VerificationResult {
	return &VerificationResult{Outcome: OutcomeRejected, Reason: reason, Badge: badge}
}

func (r *VerificationResult) IsVerified() bool {
	return r != nil && r.Outcome == OutcomeVerified
}

// CheckInOutcome is the result of recording attendance for a scan.
type CheckInOutcome string

const (
	CheckInSuccess   CheckInOutcome = "success"
	CheckInDuplicate CheckInOutcome = "duplicate"
	CheckInRejected  CheckInOutcome = "rejected"
)

// CheckInResult is returned for every scan that reached a decision. Rejections
// and duplicates are results, not errors.
type CheckInResult struct {
	Outcome             CheckInOutcome
	Reason              RejectReason
	BadgeID             id.BadgeID
	SessionID           id.SessionID
	ParticipantName     string
	ParticipantCategory Category
}
