package handler

import (
	"time"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
	audit "badgepass/pkg/platform/audit"
)

// BadgeResponse is the admin view of a badge, including the printable credential.
type BadgeResponse struct {
	ID                  string               `json:"id"`
	ParticipantID       string               `json:"participant_id"`
	ParticipantName     string               `json:"participant_name"`
	ParticipantCategory string               `json:"participant_category"`
	CredentialToken     string               `json:"credential_token"`
	Status              string               `json:"status"`
	IssuedAt            time.Time            `json:"issued_at"`
	LastUsedAt          *time.Time           `json:"last_used_at,omitempty"`
	Attendance          []AttendanceResponse `json:"attendance"`
}

type AttendanceResponse struct {
	SessionID   string    `json:"session_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// ParticipantResponse is the identity snapshot shown to scanner operators.
type ParticipantResponse struct {
	BadgeID  string `json:"badge_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// VerifyResponse is the HTTP response for POST /scan/verify.
type VerifyResponse struct {
	Outcome     string               `json:"outcome"`
	Reason      string               `json:"reason,omitempty"`
	Participant *ParticipantResponse `json:"participant,omitempty"`
}

// CheckInResponse is the HTTP response for POST /scan/checkin.
type CheckInResponse struct {
	Outcome     string               `json:"outcome"`
	Reason      string               `json:"reason,omitempty"`
	SessionID   string               `json:"session_id"`
	Participant *ParticipantResponse `json:"participant,omitempty"`
}

// FromBadge converts a domain badge to its admin representation.
func FromBadge(badge *models.Badge) *BadgeResponse {
	attendance := make([]AttendanceResponse, 0, len(badge.AttendanceRecords))
	for _, rec := range badge.AttendanceRecords {
		attendance = append(attendance, AttendanceResponse{
			SessionID:   rec.SessionID.String(),
			CheckedInAt: rec.CheckedInAt,
		})
	}
	return &BadgeResponse{
		ID:                  badge.ID.String(),
		ParticipantID:       badge.ParticipantID.String(),
		ParticipantName:     badge.ParticipantName,
		ParticipantCategory: string(badge.ParticipantCategory),
		CredentialToken:     badge.CredentialToken,
		Status:              badge.Status.String(),
		IssuedAt:            badge.IssuedAt,
		LastUsedAt:          badge.LastUsedAt,
		Attendance:          attendance,
	}
}

// FromVerification exposes the participant snapshot only for verified scans.
func FromVerification(result *models.VerificationResult) *VerifyResponse {
	resp := &VerifyResponse{
		Outcome: string(result.Outcome),
		Reason:  string(result.Reason),
	}
	if result.IsVerified() && result.Badge != nil {
		resp.Participant = &ParticipantResponse{
			BadgeID:  result.Badge.ID.String(),
			Name:     result.Badge.ParticipantName,
			Category: string(result.Badge.ParticipantCategory),
		}
	}
	return resp
}

// FromCheckIn converts a check-in result. Duplicates still show who was scanned.
func FromCheckIn(result *models.CheckInResult) *CheckInResponse {
	resp := &CheckInResponse{
		Outcome:   string(result.Outcome),
		Reason:    string(result.Reason),
		SessionID: result.SessionID.String(),
	}
	if result.Outcome != models.CheckInRejected {
		resp.Participant = &ParticipantResponse{
			BadgeID:  result.BadgeID.String(),
			Name:     result.ParticipantName,
			Category: string(result.ParticipantCategory),
		}
	}
	return resp
}

// EventResponse is one entry of a badge's audit history.
type EventResponse struct {
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Device    string    `json:"device,omitempty"`
}

type EventsResponse struct {
	BadgeID string          `json:"badge_id"`
	Events  []EventResponse `json:"events"`
}

func FromEvents(badgeID id.BadgeID, events []audit.Event) *EventsResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			Action:    e.Action,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			SessionID: e.SessionID,
			Reason:    e.Reason,
			ActorID:   e.ActorID,
			Device:    e.Device,
		})
	}
	return &EventsResponse{BadgeID: badgeID.String(), Events: out}
}
