package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryLimiterSuite struct {
	suite.Suite
	limiter *InMemoryLimiter
	now     time.Time
	ctx     context.Context
}

func TestInMemoryLimiterSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLimiterSuite))
}

func (s *InMemoryLimiterSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.limiter = NewInMemoryLimiter().WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *InMemoryLimiterSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.limiter.Allow(s.ctx, "door:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("request over limit denied with retry hint", func() {
		for range testLimit {
			result, err := s.limiter.Allow(s.ctx, "door:over", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
		result, err := s.limiter.Allow(s.ctx, "door:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(60, result.RetryAfter)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, _ = s.limiter.Allow(s.ctx, "door:a", testLimit, testWindow)
		}
		result, err := s.limiter.Allow(s.ctx, "door:b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryLimiterSuite) TestWindowSlides() {
	for range testLimit {
		_, _ = s.limiter.Allow(s.ctx, "door:slide", testLimit, testWindow)
		s.now = s.now.Add(time.Second)
	}
	denied, err := s.limiter.Allow(s.ctx, "door:slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	// The first hit was at +0s; at +60s it falls out of the window.
	s.now = s.now.Add(50 * time.Second)
	allowed, err := s.limiter.Allow(s.ctx, "door:slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
	s.Equal(0, allowed.Remaining)
}

func (s *InMemoryLimiterSuite) TestReset() {
	for range testLimit {
		_, _ = s.limiter.Allow(s.ctx, "door:reset", testLimit, testWindow)
	}
	s.limiter.Reset("door:reset")
	result, err := s.limiter.Allow(s.ctx, "door:reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryLimiterSuite) TestConcurrentHitsNeverExceedLimit() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.limiter.Allow(s.ctx, "door:race", testLimit, testWindow)
			s.NoError(err)
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
