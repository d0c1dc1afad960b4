package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"badgepass/internal/badge/models"
	"badgepass/internal/badge/store"
	id "badgepass/pkg/domain"
)

type badgeStore interface {
	Create(ctx context.Context, badge *models.Badge) error
	FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	FindActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error)
	AppendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error)
	SetStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error
}

// storeContractSuite holds the behaviour every adapter must share. Concrete
// suites embed it and provide newStore.
type storeContractSuite struct {
	suite.Suite
	newStore func() badgeStore
	store    badgeStore
	base     time.Time
}

func (s *storeContractSuite) SetupTest() {
	s.store = s.newStore()
	s.base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *storeContractSuite) makeBadge(participant string) *models.Badge {
	badge, err := models.NewBadge(
		id.NewBadgeID(),
		id.ParticipantID(participant),
		"Ada Lovelace",
		models.CategoryPresenter,
		"token-"+participant,
		s.base,
	)
	s.Require().NoError(err)
	return badge
}

func (s *storeContractSuite) TestCreateAndFind() {
	ctx := context.Background()
	badge := s.makeBadge("p-create")
	s.Require().NoError(s.store.Create(ctx, badge))

	s.Run("by id", func() {
		got, err := s.store.FindByID(ctx, badge.ID)
		s.Require().NoError(err)
		s.Equal(badge.ID, got.ID)
		s.Equal(badge.ParticipantID, got.ParticipantID)
		s.Equal("Ada Lovelace", got.ParticipantName)
		s.Equal(models.CategoryPresenter, got.ParticipantCategory)
		s.Equal(badge.CredentialToken, got.CredentialToken)
		s.Equal(models.StatusActive, got.Status)
		s.True(badge.IssuedAt.Equal(got.IssuedAt))
		s.Nil(got.LastUsedAt)
		s.Empty(got.AttendanceRecords)
	})

	s.Run("active by participant", func() {
		got, err := s.store.FindActiveByParticipant(ctx, badge.ParticipantID)
		s.Require().NoError(err)
		s.Equal(badge.ID, got.ID)
	})

	s.Run("unknown id", func() {
		_, err := s.store.FindByID(ctx, id.NewBadgeID())
		s.ErrorIs(err, store.ErrNotFound)
	})

	s.Run("participant without badge", func() {
		_, err := s.store.FindActiveByParticipant(ctx, id.ParticipantID("nobody"))
		s.ErrorIs(err, store.ErrNotFound)
	})
}

func (s *storeContractSuite) TestCreateConflicts() {
	ctx := context.Background()
	badge := s.makeBadge("p-conflict")
	s.Require().NoError(s.store.Create(ctx, badge))

	s.Run("duplicate id", func() {
		dup := badge.Clone()
		dup.ParticipantID = id.ParticipantID("someone-else")
		s.ErrorIs(s.store.Create(ctx, dup), store.ErrConflict)
	})

	s.Run("second active badge for participant", func() {
		s.ErrorIs(s.store.Create(ctx, s.makeBadge("p-conflict")), store.ErrConflict)
	})
}

func (s *storeContractSuite) TestAppendAttendance() {
	ctx := context.Background()
	badge := s.makeBadge("p-append")
	s.Require().NoError(s.store.Create(ctx, badge))

	morning := s.base.Add(time.Hour)
	afternoon := s.base.Add(5 * time.Hour)

	res, err := s.store.AppendAttendance(ctx, badge.ID, id.SessionID("keynote"), morning)
	s.Require().NoError(err)
	s.Equal(models.AppendRecorded, res)

	res, err = s.store.AppendAttendance(ctx, badge.ID, id.SessionID("keynote"), afternoon)
	s.Require().NoError(err)
	s.Equal(models.AppendAlreadyRecorded, res)

	res, err = s.store.AppendAttendance(ctx, badge.ID, id.SessionID("workshop"), afternoon)
	s.Require().NoError(err)
	s.Equal(models.AppendRecorded, res)

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	s.Require().Len(got.AttendanceRecords, 2)
	s.Equal(id.SessionID("keynote"), got.AttendanceRecords[0].SessionID)
	s.True(morning.Equal(got.AttendanceRecords[0].CheckedInAt), "duplicate must not overwrite the first check-in time")
	s.Equal(id.SessionID("workshop"), got.AttendanceRecords[1].SessionID)
	s.Require().NotNil(got.LastUsedAt)
	s.True(afternoon.Equal(*got.LastUsedAt))
}

func (s *storeContractSuite) TestAttendanceKeepsAppendOrder() {
	ctx := context.Background()
	badge := s.makeBadge("p-order")
	s.Require().NoError(s.store.Create(ctx, badge))

	// A scanner with a lagging clock appends an earlier timestamp second.
	_, err := s.store.AppendAttendance(ctx, badge.ID, id.SessionID("zeta"), s.base.Add(time.Second))
	s.Require().NoError(err)
	_, err = s.store.AppendAttendance(ctx, badge.ID, id.SessionID("alpha"), s.base)
	s.Require().NoError(err)
	_, err = s.store.AppendAttendance(ctx, badge.ID, id.SessionID("beta"), s.base)
	s.Require().NoError(err)

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	sessions := make([]id.SessionID, 0, len(got.AttendanceRecords))
	for _, rec := range got.AttendanceRecords {
		sessions = append(sessions, rec.SessionID)
	}
	s.Equal([]id.SessionID{"zeta", "alpha", "beta"}, sessions)
}

func (s *storeContractSuite) TestAppendUnknownBadge() {
	_, err := s.store.AppendAttendance(context.Background(), id.NewBadgeID(), id.SessionID("keynote"), s.base)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *storeContractSuite) TestSetStatus() {
	ctx := context.Background()
	badge := s.makeBadge("p-status")
	s.Require().NoError(s.store.Create(ctx, badge))

	s.Require().NoError(s.store.SetStatus(ctx, badge.ID, models.StatusRevoked))
	s.Require().NoError(s.store.SetStatus(ctx, badge.ID, models.StatusRevoked), "revoking twice is a no-op")

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)

	_, err = s.store.FindActiveByParticipant(ctx, badge.ParticipantID)
	s.ErrorIs(err, store.ErrNotFound)

	replacement := s.makeBadge("p-status")
	s.Require().NoError(s.store.Create(ctx, replacement), "revoked badge frees the participant slot")

	s.ErrorIs(s.store.SetStatus(ctx, badge.ID, models.StatusActive), store.ErrConflict)
	s.ErrorIs(s.store.SetStatus(ctx, id.NewBadgeID(), models.StatusRevoked), store.ErrNotFound)

	s.Require().NoError(s.store.SetStatus(ctx, replacement.ID, models.StatusRevoked))
	s.Require().NoError(s.store.SetStatus(ctx, badge.ID, models.StatusActive))
	active, err := s.store.FindActiveByParticipant(ctx, badge.ParticipantID)
	s.Require().NoError(err)
	s.Equal(badge.ID, active.ID)
}

func (s *storeContractSuite) TestConcurrentAppendRecordsOnce() {
	ctx := context.Background()
	badge := s.makeBadge("p-race")
	s.Require().NoError(s.store.Create(ctx, badge))

	const scanners = 16
	var (
		wg        sync.WaitGroup
		recorded  atomic.Int32
		duplicate atomic.Int32
		failures  atomic.Int32
	)
	for i := range scanners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.AppendAttendance(ctx, badge.ID, id.SessionID("plenary"), s.base.Add(time.Duration(i)*time.Millisecond))
			switch {
			case err != nil:
				failures.Add(1)
			case res == models.AppendRecorded:
				recorded.Add(1)
			case res == models.AppendAlreadyRecorded:
				duplicate.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	s.Equal(int32(1), recorded.Load(), "exactly one scanner records the session")
	s.Equal(int32(scanners-1), duplicate.Load())

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	s.Len(got.AttendanceRecords, 1)
}

func (s *storeContractSuite) TestConcurrentDistinctSessions() {
	ctx := context.Background()
	badge := s.makeBadge("p-many")
	s.Require().NoError(s.store.Create(ctx, badge))

	const sessions = 8
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AppendAttendance(ctx, badge.ID, id.SessionID(fmt.Sprintf("track-%d", i)), s.base.Add(time.Duration(i)*time.Minute))
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	s.Len(got.AttendanceRecords, sessions)
	s.Require().NotNil(got.LastUsedAt)
	s.True(s.base.Add((sessions - 1) * time.Minute).Equal(*got.LastUsedAt))
}
