package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"xftledger/internal/intake"
	intakestore "xftledger/internal/intake/store"
	"xftledger/internal/ledger"
	ledgerstore "xftledger/internal/ledger/store"
	"xftledger/internal/settlement"
	"xftledger/internal/settlement/handler"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/testutil"
)

type allowAllGate struct{}

func (allowAllGate) HasCapability(context.Context, id.Address, id.Capability) bool { return true }
func (allowAllGate) IsAdmin(context.Context, id.Address) bool                      { return true }

type openDirectory struct{}

func (openDirectory) IsAccountAuthorized(context.Context, id.Address) bool { return true }

type unitPrice struct{}

func (unitPrice) LastKnownPrice(context.Context) fixedpoint.Value { return fixedpoint.Base() }

type SettlementHandlerSuite struct {
	suite.Suite
	router chi.Router
	ledger *ledger.Service
	intake *intake.Service

	operator id.Address
	alice    id.Address
}

func TestSettlementHandlerSuite(t *testing.T) {
	suite.Run(t, new(SettlementHandlerSuite))
}

func (s *SettlementHandlerSuite) SetupTest() {
	led, err := ledger.New(ledgerstore.NewInMemory(), allowAllGate{})
	s.Require().NoError(err)
	s.ledger = led

	s.intake = intake.New(intakestore.NewInMemory(), allowAllGate{}, openDirectory{},
		led, unitPrice{},
		intake.WithSelfServiceEnabled(true),
	)
	svc := settlement.New(allowAllGate{}, led, s.intake)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.New(svc, logger)

	s.router = chi.NewRouter()
	h.RegisterAuthenticated(s.router)

	s.operator = s.address("0x1000000000000000000000000000000000000001")
	s.alice = s.address("0x2000000000000000000000000000000000000002")
}

func (s *SettlementHandlerSuite) address(raw string) id.Address {
	addr, err := id.ParseAddress(raw)
	s.Require().NoError(err)
	return addr
}

func (s *SettlementHandlerSuite) queuePurchase(account id.Address, amount string) id.RequestID {
	req, err := s.intake.RequestCashPurchase(context.Background(), account, fixedpoint.MustParse(amount))
	s.Require().NoError(err)
	return req.ID
}

func (s *SettlementHandlerSuite) TestSettle() {
	requestID := s.queuePurchase(s.alice, "1000")

	body := map[string]any{
		"accounts":        []string{s.alice.String()},
		"request_ids":     []string{requestID.String()},
		"settlement_date": time.Now().UTC().Add(time.Minute).Format(time.RFC3339),
		"price":           "1",
	}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/settle", body)
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	balance, err := s.ledger.BalanceOf(context.Background(), s.alice)
	s.Require().NoError(err)
	s.Equal("1000", balance.String())
}

func (s *SettlementHandlerSuite) TestSettleLengthMismatch() {
	requestID := s.queuePurchase(s.alice, "1000")

	body := map[string]any{
		"accounts":        []string{},
		"request_ids":     []string{requestID.String()},
		"settlement_date": time.Now().UTC().Add(time.Minute).Format(time.RFC3339),
		"price":           "1",
	}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/settle", body)
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, dErrors.CodeInvalidInput)
}

func (s *SettlementHandlerSuite) TestSettleRequiresAuth() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/settle", map[string]any{})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *SettlementHandlerSuite) TestDividendsDeduplicatesAccounts() {
	requestID := s.queuePurchase(s.alice, "1000")
	settle := map[string]any{
		"accounts":        []string{s.alice.String()},
		"request_ids":     []string{requestID.String()},
		"settlement_date": time.Now().UTC().Add(time.Minute).Format(time.RFC3339),
		"price":           "1",
	}
	rr := testutil.DoRequest(s.router, testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/settle", settle), s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// The same account listed twice must be paid once.
	dividends := map[string]any{
		"accounts":       []string{s.alice.String(), s.alice.String()},
		"effective_date": time.Now().UTC().Format(time.RFC3339),
		"rate":           "0.05",
		"price":          "1",
	}
	rr = testutil.DoRequest(s.router, testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/dividends", dividends), s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	balance, err := s.ledger.BalanceOf(context.Background(), s.alice)
	s.Require().NoError(err)
	s.Equal("1050", balance.String())
}

func (s *SettlementHandlerSuite) TestAdjust() {
	requestID := s.queuePurchase(s.alice, "100")
	settle := map[string]any{
		"accounts":        []string{s.alice.String()},
		"request_ids":     []string{requestID.String()},
		"settlement_date": time.Now().UTC().Add(time.Minute).Format(time.RFC3339),
		"price":           "1",
	}
	rr := testutil.DoRequest(s.router, testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/settle", settle), s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	adjust := map[string]any{
		"account":          s.alice.String(),
		"expected_current": "100",
		"new_balance":      "150",
		"reason":           "reconciliation with the custodian ledger",
	}
	rr = testutil.DoRequest(s.router, testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/adjust", adjust), s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	balance, err := s.ledger.BalanceOf(context.Background(), s.alice)
	s.Require().NoError(err)
	s.Equal("150", balance.String())

	// A stale expectation is rejected.
	rr = testutil.DoRequest(s.router, testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/settlement/adjust", adjust), s.operator))
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, dErrors.CodeStaleBalance)
}
