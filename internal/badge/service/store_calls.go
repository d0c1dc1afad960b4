package service

import (
	"context"
	"errors"
	"time"

	"badgepass/internal/badge/credential"
	"badgepass/internal/badge/models"
	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	dErrors "badgepass/pkg/domain-errors"
	"badgepass/pkg/platform/sentinel"
)

// Each call runs under storeTimeout. Domain facts (not found, conflict) pass
// through as sentinels; everything else becomes a retryable CodeUnavailable.

func (s *Service) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func unavailable(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}

func (s *Service) findBadge(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()
	defer s.metrics.ObserveStoreCall("find_by_id", time.Now())

	badge, err := s.store.FindByID(ctx, badgeID)
	if err != nil {
		return nil, unavailable(err, "badge store unavailable")
	}
	return badge, nil
}

func (s *Service) findActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()
	defer s.metrics.ObserveStoreCall("find_active_by_participant", time.Now())

	badge, err := s.store.FindActiveByParticipant(ctx, participantID)
	if err != nil {
		return nil, unavailable(err, "badge store unavailable")
	}
	return badge, nil
}

func (s *Service) createBadge(ctx context.Context, badge *models.Badge) error {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()
	defer s.metrics.ObserveStoreCall("create", time.Now())

	if err := s.store.Create(ctx, badge); err != nil {
		return unavailable(err, "badge store unavailable")
	}
	return nil
}

func (s *Service) appendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error) {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()
	defer s.metrics.ObserveStoreCall("append_attendance", time.Now())

	res, err := s.store.AppendAttendance(ctx, badgeID, session, at)
	if err != nil {
		return 0, unavailable(err, "badge store unavailable")
	}
	return res, nil
}

func (s *Service) setStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()
	defer s.metrics.ObserveStoreCall("set_status", time.Now())

	if err := s.store.SetStatus(ctx, badgeID, status); err != nil {
		return unavailable(err, "badge store unavailable")
	}
	return nil
}

func (s *Service) findParticipant(ctx context.Context, participantID id.ParticipantID) (*ports.Participant, error) {
	ctx, cancel := s.boundedContext(ctx)
	defer cancel()

	participant, err := s.directory.FindParticipant(ctx, participantID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementDirectoryError()
		}
		return nil, unavailable(err, "participant directory unavailable")
	}
	return participant, nil
}

// newBadge snapshots the directory record into a badge and its credential.
func newBadge(badgeID id.BadgeID, participant *ports.Participant, issuedAt time.Time) (*models.Badge, error) {
	token, err := credential.Encode(credential.Identity{
		BadgeID:             badgeID,
		ParticipantID:       participant.ID,
		ParticipantName:     participant.Name,
		ParticipantCategory: participant.Category,
		IssuedAtUnixMillis:  issuedAt.UnixMilli(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "participant record cannot be encoded into a credential")
	}
	badge, err := models.NewBadge(badgeID, participant.ID, participant.Name, models.Category(participant.Category), token, issuedAt)
	if err != nil {
		return nil, err
	}
	return badge, nil
}
