package store

import (
	"context"
	"sync"
	"time"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
	"badgepass/pkg/platform/sentinel"
)

// ErrNotFound and ErrConflict alias the sentinels so callers can match either.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// InMemoryStore keeps badges in process memory. A single mutex makes every
// check-then-write sequence atomic.
type InMemoryStore struct {
	mu            sync.Mutex
	badges        map[id.BadgeID]*models.Badge
	activeByOwner map[id.ParticipantID]id.BadgeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		badges:        make(map[id.BadgeID]*models.Badge),
		activeByOwner: make(map[id.ParticipantID]id.BadgeID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, badge *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.badges[badge.ID]; exists {
		return ErrConflict
	}
	if badge.IsActive() {
		if _, exists := s.activeByOwner[badge.ParticipantID]; exists {
			return ErrConflict
		}
		s.activeByOwner[badge.ParticipantID] = badge.ID
	}
	s.badges[badge.ID] = badge.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	badge, ok := s.badges[badgeID]
	if !ok {
		return nil, ErrNotFound
	}
	return badge.Clone(), nil
}

func (s *InMemoryStore) FindActiveByParticipant(_ context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	badgeID, ok := s.activeByOwner[participantID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.badges[badgeID].Clone(), nil
}

func (s *InMemoryStore) AppendAttendance(_ context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	badge, ok := s.badges[badgeID]
	if !ok {
		return 0, ErrNotFound
	}
	return badge.RecordAttendance(session, at), nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, badgeID id.BadgeID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	badge, ok := s.badges[badgeID]
	if !ok {
		return ErrNotFound
	}
	if badge.Status == status {
		return nil
	}
	switch status {
	case models.StatusActive:
		if _, taken := s.activeByOwner[badge.ParticipantID]; taken {
			return ErrConflict
		}
		s.activeByOwner[badge.ParticipantID] = badge.ID
	case models.StatusRevoked:
		if s.activeByOwner[badge.ParticipantID] == badge.ID {
			delete(s.activeByOwner, badge.ParticipantID)
		}
	}
	badge.Status = status
	return nil
}
