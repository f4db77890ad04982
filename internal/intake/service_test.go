package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"xftledger/internal/intake/models"
	"xftledger/internal/intake/store"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/requestcontext"
)

type stubGate struct{ admin bool }

func (g stubGate) HasCapability(context.Context, id.Address, id.Capability) bool { return g.admin }
func (g stubGate) IsAdmin(context.Context, id.Address) bool                      { return g.admin }

type stubDirectory struct{ authorized map[id.Address]bool }

func (d stubDirectory) IsAccountAuthorized(_ context.Context, a id.Address) bool {
	return d.authorized[a]
}

type stubHoldings struct{ balance fixedpoint.Value }

func (h stubHoldings) HasEnoughHoldings(_ context.Context, _ id.Address, amount fixedpoint.Value) (bool, error) {
	return h.balance.Cmp(amount) >= 0, nil
}

type stubPrice struct{ price fixedpoint.Value }

func (p stubPrice) LastKnownPrice(context.Context) fixedpoint.Value { return p.price }

var (
	admin  = id.Address("0x00000000000000000000000000000000000ad111")
	alice  = id.Address("0x000000000000000000000000000000000000a11c")
	mallet = id.Address("0x000000000000000000000000000000000000ba4d")
)

type IntakeSuite struct {
	suite.Suite
	svc      *Service
	holdings *stubHoldings
}

func TestIntakeSuite(t *testing.T) {
	suite.Run(t, new(IntakeSuite))
}

func (s *IntakeSuite) SetupTest() {
	s.holdings = &stubHoldings{balance: fixedpoint.FromUnits(1000)}
	s.svc = New(
		store.NewInMemory(),
		stubGate{admin: true},
		stubDirectory{authorized: map[id.Address]bool{alice: true}},
		s.holdings,
		stubPrice{price: fixedpoint.Base()},
	)
	s.Require().NoError(s.svc.EnableSelfService(context.Background(), admin))
}

func (s *IntakeSuite) TestRequestCashPurchase() {
	ctx := context.Background()
	req, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(500))
	s.Require().NoError(err)
	s.Equal(models.KindPurchase, req.Kind)
	s.False(req.ID.IsNil())

	got, err := s.svc.RequestDetail(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.True(got.Amount.Equal(fixedpoint.FromUnits(500)))
}

func (s *IntakeSuite) TestRequestDateFromContext() {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	req, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(1))
	s.Require().NoError(err)
	s.True(req.RequestDate.Equal(at))
}

func (s *IntakeSuite) TestLiquidationHoldingsCheck() {
	ctx := context.Background()

	s.Run("covered liquidation succeeds", func() {
		_, err := s.svc.RequestCashLiquidation(ctx, alice, fixedpoint.FromUnits(1000))
		s.NoError(err)
	})

	s.Run("oversized liquidation fails", func() {
		_, err := s.svc.RequestCashLiquidation(ctx, alice, fixedpoint.FromUnits(1001))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	})

	s.Run("price scales the required holdings", func() {
		// At price 2.0 a 2000 cash liquidation needs only 1000 tokens.
		svc := New(store.NewInMemory(), stubGate{admin: true},
			stubDirectory{authorized: map[id.Address]bool{alice: true}},
			s.holdings, stubPrice{price: fixedpoint.FromUnits(2)})
		s.Require().NoError(svc.EnableSelfService(ctx, admin))
		_, err := svc.RequestCashLiquidation(ctx, alice, fixedpoint.FromUnits(2000))
		s.NoError(err)
		_, err = svc.RequestCashLiquidation(ctx, alice, fixedpoint.MustParse("2000.000000000000000002"))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	})
}

func (s *IntakeSuite) TestRequestGating() {
	ctx := context.Background()

	s.Run("unauthorized account", func() {
		_, err := s.svc.RequestCashPurchase(ctx, mallet, fixedpoint.FromUnits(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("zero amount", func() {
		_, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.Zero())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("self-service disabled", func() {
		s.Require().NoError(s.svc.DisableSelfService(ctx, admin))
		_, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
		_, err = s.svc.RequestCashLiquidation(ctx, alice, fixedpoint.FromUnits(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("non-admin cannot toggle self-service", func() {
		svc := New(store.NewInMemory(), stubGate{admin: false}, stubDirectory{}, s.holdings, stubPrice{price: fixedpoint.Base()})
		err := svc.EnableSelfService(ctx, alice)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func (s *IntakeSuite) TestCancelRequest() {
	ctx := context.Background()
	req, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(10))
	s.Require().NoError(err)

	s.Run("non-owner cannot cancel", func() {
		err := s.svc.CancelRequest(ctx, mallet, req.ID, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("owner cancels pending request", func() {
		s.Require().NoError(s.svc.CancelRequest(ctx, alice, req.ID, "changed my mind"))
		_, err := s.svc.RequestDetail(ctx, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	})

	s.Run("cancel after cancel is unknown", func() {
		err := s.svc.CancelRequest(ctx, alice, req.ID, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	})
}

func (s *IntakeSuite) TestConsumeExactlyOnce() {
	ctx := context.Background()
	req, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(10))
	s.Require().NoError(err)

	got, err := s.svc.Consume(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)

	// Replay and post-consumption cancel both fail with UnknownRequest.
	_, err = s.svc.Consume(ctx, req.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	err = s.svc.CancelRequest(ctx, alice, req.ID, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
}

func (s *IntakeSuite) TestAccountRequestsOrdered() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		ctx := requestcontext.WithTime(context.Background(), base.AddDate(0, 0, 2-i))
		_, err := s.svc.RequestCashPurchase(ctx, alice, fixedpoint.FromUnits(int64(i+1)))
		s.Require().NoError(err)
	}
	reqs, err := s.svc.AccountRequests(context.Background(), alice)
	s.Require().NoError(err)
	s.Require().Len(reqs, 3)
	for i := 1; i < len(reqs); i++ {
		s.False(reqs[i].RequestDate.Before(reqs[i-1].RequestDate))
	}
	// Other accounts see nothing.
	other, err := s.svc.AccountRequests(context.Background(), mallet)
	s.Require().NoError(err)
	s.Empty(other)
}
