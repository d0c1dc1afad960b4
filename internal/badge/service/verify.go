package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"badgepass/internal/badge/credential"
	"badgepass/internal/badge/models"
	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
	"badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/sentinel"
)

// Verify decides whether a scanned credential belongs to a valid, active
// badge. Rejections are results; an error means the decision could not be
// made (CodeUnavailable).
//
// The badge and participant lookups run concurrently, but rejections are
// evaluated strictly in order: malformed token, unknown badge, revoked badge,
// token mismatch, participant not found.
func (s *Service) Verify(ctx context.Context, rawScan string) (*models.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "badge.Verify")
	defer span.End()
	defer s.metrics.ObserveVerify(time.Now())

	result, err := s.verify(ctx, rawScan)
	if err != nil {
		s.metrics.RecordVerification("error", "")
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.String("reason", string(result.Reason)),
	)
	s.metrics.RecordVerification(string(result.Outcome), string(result.Reason))
	return result, nil
}

func (s *Service) verify(ctx context.Context, rawScan string) (*models.VerificationResult, error) {
	identity, err := credential.Decode(rawScan)
	if err != nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "credential decode failed", "error", err)
		}
		return models.Rejected(models.RejectMalformedToken, nil), nil
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("badge_id", identity.BadgeID.String()))

	var (
		badge          *models.Badge
		badgeErr       error
		participant    *ports.Participant
		participantErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		badge, badgeErr = s.findBadge(gctx, identity.BadgeID)
		if badgeErr != nil && !errors.Is(badgeErr, sentinel.ErrNotFound) {
			// Without the badge nothing can be decided; stop the directory call.
			return badgeErr
		}
		return nil
	})
	g.Go(func() error {
		// Directory failures only matter once every badge check has passed,
		// so they never cancel the badge lookup.
		participant, participantErr = s.findParticipant(gctx, identity.ParticipantID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case errors.Is(badgeErr, sentinel.ErrNotFound):
		return models.Rejected(models.RejectUnknownBadge, nil), nil
	case !badge.IsActive():
		return models.Rejected(models.RejectBadgeRevoked, badge), nil
	case badge.ParticipantID != identity.ParticipantID:
		return models.Rejected(models.RejectTokenMismatch, badge), nil
	}

	if participantErr != nil {
		if errors.Is(participantErr, sentinel.ErrNotFound) {
			return models.Rejected(models.RejectParticipantNotFound, badge), nil
		}
		return nil, participantErr
	}
	if participant == nil {
		return models.Rejected(models.RejectParticipantNotFound, badge), nil
	}
	return models.Verified(badge), nil
}

// CheckIn verifies a scan and records attendance for session. A second scan
// for the same session yields CheckInDuplicate and leaves the ledger untouched.
func (s *Service) CheckIn(ctx context.Context, rawScan string, session id.SessionID) (*models.CheckInResult, error) {
	ctx, span := s.tracer.Start(ctx, "badge.CheckIn",
		trace.WithAttributes(attribute.String("session_id", session.String())))
	defer span.End()

	session, err := id.ParseSessionID(session.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid session id")
	}

	result, err := s.checkIn(ctx, rawScan, session)
	if err != nil {
		s.metrics.RecordCheckIn("error")
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	s.metrics.RecordCheckIn(string(result.Outcome))
	return result, nil
}

func (s *Service) checkIn(ctx context.Context, rawScan string, session id.SessionID) (*models.CheckInResult, error) {
	verification, err := s.Verify(ctx, rawScan)
	if err != nil {
		return nil, err
	}
	if !verification.IsVerified() {
		result := &models.CheckInResult{
			Outcome:   models.CheckInRejected,
			Reason:    verification.Reason,
			SessionID: session,
		}
		attributes := []any{"session_id", session, "reason", string(verification.Reason), "decision", string(models.CheckInRejected)}
		if verification.Badge != nil {
			result.BadgeID = verification.Badge.ID
			attributes = append(attributes, "badge_id", verification.Badge.ID, "participant_id", verification.Badge.ParticipantID)
		}
		s.logAudit(ctx, audit.EventScanRejected, attributes...)
		return result, nil
	}

	badge := verification.Badge
	appended, err := s.appendAttendance(ctx, badge.ID, session, s.timestamp(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Removed between lookup and append; treat as an unknown badge.
			s.logAudit(ctx, audit.EventScanRejected,
				"badge_id", badge.ID,
				"session_id", session,
				"reason", string(models.RejectUnknownBadge),
				"decision", string(models.CheckInRejected),
			)
			return &models.CheckInResult{
				Outcome:   models.CheckInRejected,
				Reason:    models.RejectUnknownBadge,
				BadgeID:   badge.ID,
				SessionID: session,
			}, nil
		}
		return nil, err
	}

	result := &models.CheckInResult{
		BadgeID:             badge.ID,
		SessionID:           session,
		ParticipantName:     badge.ParticipantName,
		ParticipantCategory: badge.ParticipantCategory,
	}
	event := audit.EventCheckInRecorded
	if appended == models.AppendRecorded {
		result.Outcome = models.CheckInSuccess
	} else {
		result.Outcome = models.CheckInDuplicate
		event = audit.EventCheckInDuplicate
	}
	s.logAudit(ctx, event,
		"badge_id", badge.ID,
		"participant_id", badge.ParticipantID,
		"session_id", session,
		"decision", string(result.Outcome),
	)
	return result, nil
}
