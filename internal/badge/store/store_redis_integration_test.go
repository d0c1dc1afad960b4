//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"badgepass/internal/badge/models"
	"badgepass/internal/badge/store"
	"badgepass/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	storeContractSuite
	redis *containers.RedisContainer
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(RedisStoreSuite)
	s.newStore = func() badgeStore {
		s.Require().NoError(s.redis.FlushAll(context.Background()))
		return store.NewRedisStore(s.redis.Client.Client)
	}
	suite.Run(t, s)
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

// TestConcurrentRevokeReinstate races status flips against each other and
// checks the active-owner index never points at a revoked badge.
func (s *RedisStoreSuite) TestConcurrentRevokeReinstate() {
	ctx := context.Background()
	badge := s.makeBadge("p-flip")
	s.Require().NoError(s.store.Create(ctx, badge))

	const goroutines = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := models.StatusRevoked
			if i%2 == 0 {
				status = models.StatusActive
			}
			// Exhausted WATCH retries are an acceptable outcome under contention.
			err := s.store.SetStatus(ctx, badge.ID, status)
			if err != nil && !errors.Is(err, redis.TxFailedErr) {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(0), failures.Load())

	got, err := s.store.FindByID(ctx, badge.ID)
	s.Require().NoError(err)
	active, err := s.store.FindActiveByParticipant(ctx, badge.ParticipantID)
	if got.IsActive() {
		s.Require().NoError(err)
		s.Equal(badge.ID, active.ID)
	} else {
		s.ErrorIs(err, store.ErrNotFound)
	}
}
