package handler

import (
	"strings"

	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
)

// IssueBadgeRequest is the HTTP request body for POST /admin/badges.
type IssueBadgeRequest struct {
	ParticipantID string `json:"participant_id"`

	parsedParticipantID id.ParticipantID
}

// Validate implements httputil.Validatable.
func (r *IssueBadgeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ParticipantID = strings.TrimSpace(r.ParticipantID)
	if r.ParticipantID == "" {
		return dErrors.New(dErrors.CodeValidation, "participant_id is required")
	}
	participantID, err := id.ParseParticipantID(r.ParticipantID)
	if err != nil {
		return err
	}
	r.parsedParticipantID = participantID
	return nil
}

func (r *IssueBadgeRequest) ParsedParticipantID() id.ParticipantID {
	return r.parsedParticipantID
}

// ScanRequest is the HTTP request body for POST /scan/verify. The token is
// passed through untouched; malformed content is a verification outcome.
type ScanRequest struct {
	Token *string `json:"token"`
}

// Validate implements httputil.Validatable.
func (r *ScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Token == nil {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

func (r *ScanRequest) ParsedToken() string {
	if r.Token == nil {
		return ""
	}
	return *r.Token
}

// CheckInRequest is the HTTP request body for POST /scan/checkin.
type CheckInRequest struct {
	ScanRequest
	SessionID string `json:"session_id"`

	parsedSessionID id.SessionID
}

// Validate implements httputil.Validatable.
func (r *CheckInRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := r.ScanRequest.Validate(); err != nil {
		return err
	}
	sessionID, err := id.ParseSessionID(r.SessionID)
	if err != nil {
		return err
	}
	r.SessionID = sessionID.String()
	r.parsedSessionID = sessionID
	return nil
}

func (r *CheckInRequest) ParsedSessionID() id.SessionID {
	return r.parsedSessionID
}
