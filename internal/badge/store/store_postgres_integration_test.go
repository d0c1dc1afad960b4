//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"badgepass/internal/badge/store"
	"badgepass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storeContractSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(PostgresStoreSuite)
	s.newStore = func() badgeStore {
		ctx := context.Background()
		st := store.NewSQLStore(s.postgres.DB, store.DialectPostgres)
		s.Require().NoError(st.Migrate(ctx))
		s.Require().NoError(s.postgres.TruncateTables(ctx, "badge_attendance", "badges"))
		return st
	}
	suite.Run(t, s)
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}
