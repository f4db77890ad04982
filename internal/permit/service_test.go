package permit

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"xftledger/internal/permit/models"
	"xftledger/internal/permit/store"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/requestcontext"
)

const symbol = id.InstrumentSymbol("XFMM")

var deadline = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeLedger records transfers and can be told to refuse them.
type fakeLedger struct {
	transfers int
	fail      error
}

func (l *fakeLedger) Transfer(_ context.Context, _, _ id.Address, _ fixedpoint.Value) error {
	if l.fail != nil {
		return l.fail
	}
	l.transfers++
	return nil
}

type signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	addr id.Address
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := DeriveAddress(pub)
	if err != nil {
		t.Fatal(err)
	}
	return signer{pub: pub, priv: priv, addr: addr}
}

func (s signer) permit(spender id.Address, value fixedpoint.Value, nonce uint64) models.Permit {
	digest := Digest(symbol, s.addr, spender, value, nonce, deadline)
	return models.Permit{
		Owner:     s.addr,
		Spender:   spender,
		Value:     value,
		Nonce:     nonce,
		Deadline:  deadline,
		PublicKey: s.pub,
		Signature: ed25519.Sign(s.priv, digest),
	}
}

type PermitSuite struct {
	suite.Suite
	owner   signer
	spender id.Address
	ledger  *fakeLedger
	svc     *Service
}

func TestPermitSuite(t *testing.T) {
	suite.Run(t, new(PermitSuite))
}

func (s *PermitSuite) SetupTest() {
	s.owner = newSigner(s.T())
	s.spender = id.Address("0x00000000000000000000000000000000005e11d0")
	s.ledger = &fakeLedger{}
	s.svc = New(symbol, store.NewInMemoryNonceStore(), s.ledger)
}

func (s *PermitSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *PermitSuite) TestPermitStoresAllowanceAndBumpsNonce() {
	ctx := s.at(deadline.Add(-time.Hour))
	value := fixedpoint.FromUnits(500)

	s.Require().NoError(s.svc.Permit(ctx, s.owner.permit(s.spender, value, 0)))
	s.True(s.svc.Allowance(ctx, s.owner.addr, s.spender).Equal(value))

	nonce, err := s.svc.Nonce(ctx, s.owner.addr)
	s.Require().NoError(err)
	s.Equal(uint64(1), nonce)
}

func (s *PermitSuite) TestExpiredPermit() {
	err := s.svc.Permit(s.at(deadline.Add(time.Second)), s.owner.permit(s.spender, fixedpoint.FromUnits(1), 0))
	s.True(dErrors.HasCode(err, dErrors.CodePermitExpired))
}

func (s *PermitSuite) TestNonceReuse() {
	ctx := s.at(deadline.Add(-time.Hour))
	p := s.owner.permit(s.spender, fixedpoint.FromUnits(1), 0)
	s.Require().NoError(s.svc.Permit(ctx, p))

	// Replaying the same permit or signing nonce 0 again both fail.
	err := s.svc.Permit(ctx, p)
	s.True(dErrors.HasCode(err, dErrors.CodeNonceReused))
	err = s.svc.Permit(ctx, s.owner.permit(s.spender, fixedpoint.FromUnits(2), 0))
	s.True(dErrors.HasCode(err, dErrors.CodeNonceReused))

	// The next nonce is accepted.
	s.Require().NoError(s.svc.Permit(ctx, s.owner.permit(s.spender, fixedpoint.FromUnits(2), 1)))
}

func (s *PermitSuite) TestInvalidSignatures() {
	ctx := s.at(deadline.Add(-time.Hour))

	s.Run("tampered value", func() {
		p := s.owner.permit(s.spender, fixedpoint.FromUnits(10), 0)
		p.Value = fixedpoint.FromUnits(1000)
		err := s.svc.Permit(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("wrong key for owner address", func() {
		other := newSigner(s.T())
		p := s.owner.permit(s.spender, fixedpoint.FromUnits(10), 0)
		p.PublicKey = other.pub
		err := s.svc.Permit(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("malformed key", func() {
		p := s.owner.permit(s.spender, fixedpoint.FromUnits(10), 0)
		p.PublicKey = p.PublicKey[:5]
		err := s.svc.Permit(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("check order: deadline beats nonce beats signature", func() {
		p := s.owner.permit(s.spender, fixedpoint.FromUnits(10), 7)
		p.Signature = nil
		err := s.svc.Permit(s.at(deadline.Add(time.Hour)), p)
		s.True(dErrors.HasCode(err, dErrors.CodePermitExpired))
		err = s.svc.Permit(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeNonceReused))
	})
}

func (s *PermitSuite) TestTransferFrom() {
	ctx := s.at(deadline.Add(-time.Hour))
	recipient := id.Address("0x000000000000000000000000000000000000beef")
	s.Require().NoError(s.svc.Permit(ctx, s.owner.permit(s.spender, fixedpoint.FromUnits(100), 0)))

	s.Run("debits the allowance on success", func() {
		err := s.svc.TransferFrom(ctx, s.spender, s.owner.addr, recipient, fixedpoint.FromUnits(60))
		s.Require().NoError(err)
		s.Equal(1, s.ledger.transfers)
		s.Equal("40", s.svc.Allowance(ctx, s.owner.addr, s.spender).String())
	})

	s.Run("rejects spends beyond the allowance", func() {
		err := s.svc.TransferFrom(ctx, s.spender, s.owner.addr, recipient, fixedpoint.FromUnits(41))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
		s.Equal(1, s.ledger.transfers)
	})

	s.Run("keeps the allowance when the ledger refuses", func() {
		s.ledger.fail = dErrors.New(dErrors.CodeSenderBlocked, "sender account is blocked")
		err := s.svc.TransferFrom(ctx, s.spender, s.owner.addr, recipient, fixedpoint.FromUnits(10))
		s.True(dErrors.HasCode(err, dErrors.CodeSenderBlocked))
		s.Equal("40", s.svc.Allowance(ctx, s.owner.addr, s.spender).String())
	})

	s.Run("unknown spender has no allowance", func() {
		err := s.svc.TransferFrom(ctx, recipient, s.owner.addr, s.spender, fixedpoint.FromUnits(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func TestDeriveAddressIsStable(t *testing.T) {
	s := newSigner(t)
	again, err := DeriveAddress(s.pub)
	if err != nil {
		t.Fatal(err)
	}
	if again != s.addr {
		t.Fatalf("address derivation is not deterministic: %s != %s", again, s.addr)
	}
	if _, err := id.ParseAddress(s.addr.String()); err != nil {
		t.Fatalf("derived address does not round-trip: %v", err)
	}
}
