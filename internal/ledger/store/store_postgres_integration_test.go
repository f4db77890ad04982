//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"xftledger/internal/ledger/models"
	"xftledger/internal/ledger/store"
	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/sentinel"
	"xftledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ledger_accounts", "ledger_state"))
}

func (s *PostgresStoreSuite) address(raw string) id.Address {
	addr, err := id.ParseAddress(raw)
	s.Require().NoError(err)
	return addr
}

func (s *PostgresStoreSuite) TestMissingAccount() {
	_, err := s.store.Account(context.Background(), s.address("0x1000000000000000000000000000000000000001"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEmptyStateDefaults() {
	state, err := s.store.State(context.Background())
	s.Require().NoError(err)
	s.True(state.TotalShares.IsZero())
	s.True(state.RewardMultiplier.Equal(fixedpoint.Base()))
}

func (s *PostgresStoreSuite) TestApplyRoundTrip() {
	ctx := context.Background()
	alice := s.address("0x2000000000000000000000000000000000000002")

	state := models.NewState()
	state.TotalShares = fixedpoint.MustParse("1000")
	err := s.store.Apply(ctx, models.ChangeSet{
		Accounts: []models.Account{{Address: alice, Shares: fixedpoint.MustParse("1000")}},
		State:    &state,
	})
	s.Require().NoError(err)

	acct, err := s.store.Account(ctx, alice)
	s.Require().NoError(err)
	s.Equal("1000", acct.Shares.String())
	s.False(acct.Blocked)

	loaded, err := s.store.State(ctx)
	s.Require().NoError(err)
	s.Equal("1000", loaded.TotalShares.String())
}

func (s *PostgresStoreSuite) TestApplyUpserts() {
	ctx := context.Background()
	alice := s.address("0x2000000000000000000000000000000000000002")

	first := models.ChangeSet{Accounts: []models.Account{{Address: alice, Shares: fixedpoint.MustParse("10")}}}
	s.Require().NoError(s.store.Apply(ctx, first))

	second := models.ChangeSet{Accounts: []models.Account{{Address: alice, Shares: fixedpoint.MustParse("25"), Blocked: true}}}
	s.Require().NoError(s.store.Apply(ctx, second))

	acct, err := s.store.Account(ctx, alice)
	s.Require().NoError(err)
	s.Equal("25", acct.Shares.String())
	s.True(acct.Blocked)
}

func (s *PostgresStoreSuite) TestNonZeroAccounts() {
	ctx := context.Background()
	alice := s.address("0x2000000000000000000000000000000000000002")
	bob := s.address("0x3000000000000000000000000000000000000003")

	err := s.store.Apply(ctx, models.ChangeSet{Accounts: []models.Account{
		{Address: alice, Shares: fixedpoint.MustParse("5")},
		{Address: bob, Shares: fixedpoint.Zero()},
	}})
	s.Require().NoError(err)

	holders, err := s.store.NonZeroAccounts(ctx)
	s.Require().NoError(err)
	s.Require().Len(holders, 1)
	s.Equal(alice, holders[0].Address)
}

func (s *PostgresStoreSuite) TestLargeShareCounts() {
	ctx := context.Background()
	whale := s.address("0x4000000000000000000000000000000000000004")

	// Values far beyond int64 must survive the numeric round trip.
	big := fixedpoint.MustParse("115792089237316195423570985008687907853269")
	err := s.store.Apply(ctx, models.ChangeSet{
		Accounts: []models.Account{{Address: whale, Shares: big}},
	})
	s.Require().NoError(err)

	acct, err := s.store.Account(ctx, whale)
	s.Require().NoError(err)
	s.True(acct.Shares.Equal(big))
}
