package ports

import (
	"context"

	id "badgepass/pkg/domain"
)

// ParticipantDirectory is the read-only view of the registration system.
// The badge module never writes to it.
//
// Implementations return sentinel.ErrNotFound (possibly wrapped) when the
// participant does not exist, and sentinel.ErrUnavailable when the directory
// cannot be reached.
type ParticipantDirectory interface {
	FindParticipant(ctx context.Context, participantID id.ParticipantID) (*Participant, error)
}

// Participant is the directory's registration record (port model).
type Participant struct {
	ID        id.ParticipantID
	Name      string
	Category  string
	Confirmed bool
}
