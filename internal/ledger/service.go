// Package ledger implements the share accounting core. The externally
// visible balance is a derived quantity: balance = shares * rewardMultiplier
// / BASE. Shares are the stable unit of ownership; the multiplier rebases
// every balance at once.
//
// Concurrency model: single writer. One mutex spans every mutating
// operation, including whole settlement batches, so no interleaving of two
// mutations against the same account is possible and batches are
// all-or-nothing.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"xftledger/internal/authz"
	"xftledger/internal/holdings"
	ledgermetrics "xftledger/internal/ledger/metrics"
	"xftledger/internal/ledger/models"
	"xftledger/internal/ledger/store"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/sentinel"
)

// LifecycleGate is the instrument status check the ledger consults before
// mutating. The lifecycle module implements it; an unbound ledger (unit
// tests of pure accounting) performs no lifecycle gating.
type LifecycleGate interface {
	// CheckMutation fails when the instrument state forbids mint/burn
	// (matured or otherwise inactive).
	CheckMutation(ctx context.Context) error
	// CheckTransfer additionally fails while peer transfers are paused.
	CheckTransfer(ctx context.Context) error
}

// Service is the share ledger.
type Service struct {
	mu        sync.Mutex
	store     store.Store
	gate      authz.Gate
	lifecycle LifecycleGate
	index     *holdings.Index
	logger    *slog.Logger
	metrics   *ledgermetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the ledger service.
func New(st store.Store, gate authz.Gate, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("authorization gate is required")
	}
	s := &Service{
		store: st,
		gate:  gate,
		index: holdings.NewIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BindLifecycle attaches the lifecycle gate. Called once during wiring; the
// lifecycle module itself depends on the ledger, so the bind happens after
// both are constructed.
func (s *Service) BindLifecycle(g LifecycleGate) {
	s.lifecycle = g
}

// RebuildHolderIndex reloads the holder index from persisted accounts.
// Called at startup so an implementation swap over the same storage finds
// the same holder set.
func (s *Service) RebuildHolderIndex(ctx context.Context) error {
	accounts, err := s.store.NonZeroAccounts(ctx)
	if err != nil {
		return fmt.Errorf("rebuild holder index: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = holdings.NewIndex()
	for _, acct := range accounts {
		s.index.Add(acct.Address)
	}
	s.metrics.SetHolders(s.index.Len())
	return nil
}

// -----------------------------------------------------------------------------
// Reads and pure conversions
// -----------------------------------------------------------------------------

func (s *Service) account(ctx context.Context, addr id.Address) (models.Account, error) {
	acct, err := s.store.Account(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Account{Address: addr, Shares: fixedpoint.Zero()}, nil
	}
	return acct, err
}

// SharesOf returns the account's raw share count.
func (s *Service) SharesOf(ctx context.Context, addr id.Address) (fixedpoint.Value, error) {
	acct, err := s.account(ctx, addr)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return acct.Shares, nil
}

// BalanceOf returns the derived token balance using the multiplier in
// effect at query time.
func (s *Service) BalanceOf(ctx context.Context, addr id.Address) (fixedpoint.Value, error) {
	acct, err := s.account(ctx, addr)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return s.ConvertToTokens(ctx, acct.Shares)
}

// TotalShares returns the ledger-wide share count.
func (s *Service) TotalShares(ctx context.Context) (fixedpoint.Value, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return st.TotalShares, nil
}

// TotalSupply returns the derived token supply.
func (s *Service) TotalSupply(ctx context.Context) (fixedpoint.Value, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return st.TotalShares.MulDiv(st.RewardMultiplier, fixedpoint.Base())
}

// RewardMultiplier returns the current multiplier.
func (s *Service) RewardMultiplier(ctx context.Context) (fixedpoint.Value, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return st.RewardMultiplier, nil
}

// ConvertToShares converts a token amount to shares at the current
// multiplier, rounding down.
func (s *Service) ConvertToShares(ctx context.Context, amount fixedpoint.Value) (fixedpoint.Value, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return amount.MulDiv(fixedpoint.Base(), st.RewardMultiplier)
}

// ConvertToTokens converts shares to a token amount at the current
// multiplier, rounding down.
func (s *Service) ConvertToTokens(ctx context.Context, shares fixedpoint.Value) (fixedpoint.Value, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return shares.MulDiv(st.RewardMultiplier, fixedpoint.Base())
}

// GetShareHoldings returns the derived balance for the holdings interface.
func (s *Service) GetShareHoldings(ctx context.Context, addr id.Address) (fixedpoint.Value, error) {
	return s.BalanceOf(ctx, addr)
}

// HasEnoughHoldings reports whether the account's derived balance covers
// the amount.
func (s *Service) HasEnoughHoldings(ctx context.Context, addr id.Address, amount fixedpoint.Value) (bool, error) {
	bal, err := s.BalanceOf(ctx, addr)
	if err != nil {
		return false, err
	}
	return bal.Cmp(amount) >= 0, nil
}

// IsBlocked reports the account's blocklist flag.
func (s *Service) IsBlocked(ctx context.Context, addr id.Address) (bool, error) {
	acct, err := s.account(ctx, addr)
	if err != nil {
		return false, err
	}
	return acct.Blocked, nil
}

// Holders returns a snapshot of all accounts with non-zero shares.
func (s *Service) Holders(_ context.Context) []id.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.All()
}

// IsHolder reports holder index membership; used by tests and repairs.
func (s *Service) IsHolder(_ context.Context, addr id.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Contains(addr)
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

func (s *Service) checkMintBurnActor(ctx context.Context, actor id.Address) error {
	if s.gate.HasCapability(ctx, actor, id.CapabilityMintBurn) ||
		s.gate.HasCapability(ctx, actor, id.CapabilityWriteToken) {
		return nil
	}
	return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot mint or burn", actor)
}

func (s *Service) checkMutationGate(ctx context.Context) error {
	if s.lifecycle == nil {
		return nil
	}
	return s.lifecycle.CheckMutation(ctx)
}

func (s *Service) checkTransferGate(ctx context.Context) error {
	if s.lifecycle == nil {
		return nil
	}
	return s.lifecycle.CheckTransfer(ctx)
}

// MintByAmount mints tokens: the amount converts to shares at the current
// multiplier and both the account and the total grow by that share count.
func (s *Service) MintByAmount(ctx context.Context, actor, account id.Address, amount fixedpoint.Value) error {
	if err := s.checkMintBurnActor(ctx, actor); err != nil {
		return err
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	if err := b.mintAmount(account, amount); err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	s.metrics.IncOperation("mint", "ok")
	s.log(ctx, "minted", "account", account, "amount", amount)
	return nil
}

// MintByShares mints a direct share count.
func (s *Service) MintByShares(ctx context.Context, actor, account id.Address, shares fixedpoint.Value) error {
	if err := s.checkMintBurnActor(ctx, actor); err != nil {
		return err
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	if err := b.mintShares(account, shares); err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("mint", "error")
		return err
	}
	s.metrics.IncOperation("mint", "ok")
	return nil
}

// BurnByAmount burns tokens, converting to shares at the current multiplier.
func (s *Service) BurnByAmount(ctx context.Context, actor, account id.Address, amount fixedpoint.Value) error {
	if err := s.checkMintBurnActor(ctx, actor); err != nil {
		return err
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	if err := b.burnAmount(account, amount); err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	s.metrics.IncOperation("burn", "ok")
	s.log(ctx, "burned", "account", account, "amount", amount)
	return nil
}

// BurnByShares burns a direct share count.
func (s *Service) BurnByShares(ctx context.Context, actor, account id.Address, shares fixedpoint.Value) error {
	if err := s.checkMintBurnActor(ctx, actor); err != nil {
		return err
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	if err := b.burnShares(account, shares); err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("burn", "error")
		return err
	}
	s.metrics.IncOperation("burn", "ok")
	return nil
}

// Transfer moves a token amount from one account to another as a single
// share delta on both sides. Blocklist checks come first, independent of
// authorization; the pause flag gates peer transfers but not privileged
// mint/burn.
func (s *Service) Transfer(ctx context.Context, from, to id.Address, amount fixedpoint.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transferLocked(ctx, from, to, amount); err != nil {
		s.metrics.IncOperation("transfer", "error")
		return err
	}
	s.metrics.IncOperation("transfer", "ok")
	return nil
}

func (s *Service) transferLocked(ctx context.Context, from, to id.Address, amount fixedpoint.Value) error {
	fromAcct, err := s.account(ctx, from)
	if err != nil {
		return err
	}
	toAcct, err := s.account(ctx, to)
	if err != nil {
		return err
	}
	if fromAcct.Blocked {
		return dErrors.Newf(dErrors.CodeSenderBlocked, "account %s is blocked", from)
	}
	if toAcct.Blocked {
		return dErrors.Newf(dErrors.CodeRecipientBlocked, "account %s is blocked", to)
	}
	if err := s.checkTransferGate(ctx); err != nil {
		return err
	}

	b, err := s.begin(ctx)
	if err != nil {
		return err
	}
	shares, err := amount.MulDiv(fixedpoint.Base(), b.state.RewardMultiplier)
	if err != nil {
		return err
	}
	if err := b.moveShares(from, to, shares); err != nil {
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		return err
	}
	s.log(ctx, "transferred", "from", from, "to", to, "amount", amount)
	return nil
}

// TransferShares is the privileged share-level move used by the transfer
// agent; it requires write access to the token.
func (s *Service) TransferShares(ctx context.Context, actor, from, to id.Address, shares fixedpoint.Value) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityWriteToken) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s has no write access to the token", actor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fromAcct, err := s.account(ctx, from)
	if err != nil {
		return err
	}
	toAcct, err := s.account(ctx, to)
	if err != nil {
		return err
	}
	if fromAcct.Blocked {
		return dErrors.Newf(dErrors.CodeSenderBlocked, "account %s is blocked", from)
	}
	if toAcct.Blocked {
		return dErrors.Newf(dErrors.CodeRecipientBlocked, "account %s is blocked", to)
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}

	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("transfer_shares", "error")
		return err
	}
	if err := b.moveShares(from, to, shares); err != nil {
		s.metrics.IncOperation("transfer_shares", "error")
		return err
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("transfer_shares", "error")
		return err
	}
	s.metrics.IncOperation("transfer_shares", "ok")
	return nil
}

// SetRewardMultiplier overwrites the multiplier. Distinct capability from
// the additive oracle path.
func (s *Service) SetRewardMultiplier(ctx context.Context, actor id.Address, v fixedpoint.Value) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilitySetMultiplier) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot set the reward multiplier", actor)
	}
	if v.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "reward multiplier must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.store.State(ctx)
	if err != nil {
		return err
	}
	st.RewardMultiplier = v
	if err := s.store.Apply(ctx, models.ChangeSet{State: &st}); err != nil {
		return err
	}
	s.metrics.IncMultiplierUpdate("set")
	s.log(ctx, "reward multiplier set", "multiplier", v)
	return nil
}

// AddRewardMultiplier applies an additive adjustment, the oracle-style
// update path.
func (s *Service) AddRewardMultiplier(ctx context.Context, actor id.Address, delta fixedpoint.Value) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityOracle) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot adjust the reward multiplier", actor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.store.State(ctx)
	if err != nil {
		return err
	}
	st.RewardMultiplier = st.RewardMultiplier.Add(delta)
	if err := s.store.Apply(ctx, models.ChangeSet{State: &st}); err != nil {
		return err
	}
	s.metrics.IncMultiplierUpdate("add")
	s.log(ctx, "reward multiplier adjusted", "delta", delta, "multiplier", st.RewardMultiplier)
	return nil
}

// SetAccountsBlocked blocks or unblocks a set of accounts.
func (s *Service) SetAccountsBlocked(ctx context.Context, actor id.Address, accounts []id.Address, blocked bool) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityBlocklist) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot manage the blocklist", actor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	change := models.ChangeSet{}
	for _, addr := range accounts {
		acct, err := s.account(ctx, addr)
		if err != nil {
			return err
		}
		acct.Blocked = blocked
		change.Accounts = append(change.Accounts, acct)
	}
	if err := s.store.Apply(ctx, change); err != nil {
		return err
	}
	s.log(ctx, "blocklist updated", "accounts", len(accounts), "blocked", blocked)
	return nil
}

// -----------------------------------------------------------------------------
// Batches
// -----------------------------------------------------------------------------

// OpKind distinguishes batch operations.
type OpKind string

const (
	OpMint OpKind = "mint"
	OpBurn OpKind = "burn"
)

// Op is one mint or burn inside an atomic batch; Amount is in token units.
type Op struct {
	Kind    OpKind
	Account id.Address
	Amount  fixedpoint.Value
}

// ApplyBatch executes a set of mints and burns as one all-or-nothing
// mutation under the writer lock. The settlement and dividend engines use
// this so a failure partway through rolls back every prior operation in the
// call.
func (s *Service) ApplyBatch(ctx context.Context, actor id.Address, ops []Op) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityWriteToken) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s has no write access to the token", actor)
	}
	if err := s.checkMutationGate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		s.metrics.IncOperation("batch", "error")
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case OpMint:
			err = b.mintAmount(op.Account, op.Amount)
		case OpBurn:
			err = b.burnAmount(op.Account, op.Amount)
		default:
			err = dErrors.Newf(dErrors.CodeInvalidInput, "unknown batch op %q", op.Kind)
		}
		if err != nil {
			s.metrics.IncOperation("batch", "error")
			return err
		}
	}
	if err := s.commit(ctx, b); err != nil {
		s.metrics.IncOperation("batch", "error")
		return err
	}
	s.metrics.IncOperation("batch", "ok")
	return nil
}

// BurnAllHolders burns every holder's full share balance in one atomic
// batch and returns the total token amount burned. Only the lifecycle
// module calls this, during maturity settlement; it performs its own
// precondition checks first.
func (s *Service) BurnAllHolders(ctx context.Context, actor id.Address) (fixedpoint.Value, error) {
	if !s.gate.IsAdmin(ctx, actor) {
		return fixedpoint.Value{}, dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot settle maturity", actor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.begin(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	totalBurned := fixedpoint.Zero()
	for _, holder := range s.index.All() {
		acct, err := s.account(ctx, holder)
		if err != nil {
			return fixedpoint.Value{}, err
		}
		tokens, err := acct.Shares.MulDiv(b.state.RewardMultiplier, fixedpoint.Base())
		if err != nil {
			return fixedpoint.Value{}, err
		}
		if err := b.burnShares(holder, acct.Shares); err != nil {
			return fixedpoint.Value{}, err
		}
		totalBurned = totalBurned.Add(tokens)
	}
	if err := s.commit(ctx, b); err != nil {
		return fixedpoint.Value{}, err
	}
	s.log(ctx, "all holders burned", "total_burned", totalBurned)
	return totalBurned, nil
}

// -----------------------------------------------------------------------------
// Holder index repairs
// -----------------------------------------------------------------------------

// UpdateHolderInList resynchronizes one account's index membership against
// its actual share count. Idempotent.
func (s *Service) UpdateHolderInList(ctx context.Context, addr id.Address) error {
	acct, err := s.account(ctx, addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Sync(addr, !acct.Shares.IsZero())
	s.metrics.SetHolders(s.index.Len())
	return nil
}

// RemoveEmptyHolderFromList drops an account from the index only when its
// shares are zero. Idempotent; a non-empty account is left indexed.
func (s *Service) RemoveEmptyHolderFromList(ctx context.Context, addr id.Address) error {
	acct, err := s.account(ctx, addr)
	if err != nil {
		return err
	}
	if !acct.Shares.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Remove(addr)
	s.metrics.SetHolders(s.index.Len())
	return nil
}

// -----------------------------------------------------------------------------
// Internal batch bookkeeping
// -----------------------------------------------------------------------------

// batch stages mutations against an overlay of the store so multi-account
// operations read their own writes and commit atomically. Callers hold s.mu
// for the batch's whole lifetime.
type batch struct {
	s       *Service
	ctx     context.Context
	state   models.State
	staged  map[id.Address]models.Account
	touched []id.Address
}

func (s *Service) begin(ctx context.Context) (*batch, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	return &batch{
		s:      s,
		ctx:    ctx,
		state:  st,
		staged: make(map[id.Address]models.Account),
	}, nil
}

func (b *batch) lookup(addr id.Address) (models.Account, error) {
	if acct, ok := b.staged[addr]; ok {
		return acct, nil
	}
	return b.s.account(b.ctx, addr)
}

func (b *batch) stage(acct models.Account) {
	if _, ok := b.staged[acct.Address]; !ok {
		b.touched = append(b.touched, acct.Address)
	}
	b.staged[acct.Address] = acct
}

func (b *batch) mintShares(addr id.Address, shares fixedpoint.Value) error {
	// lookup already maps a missing account to a zero balance, so any error
	// here is a store failure and staging over it would clobber the account.
	acct, err := b.lookup(addr)
	if err != nil {
		return err
	}
	acct.Shares = acct.Shares.Add(shares)
	b.state.TotalShares = b.state.TotalShares.Add(shares)
	b.stage(acct)
	return nil
}

func (b *batch) burnShares(addr id.Address, shares fixedpoint.Value) error {
	acct, err := b.lookup(addr)
	if err != nil {
		return err
	}
	newShares, err := acct.Shares.Sub(shares)
	if err != nil {
		return dErrors.Newf(dErrors.CodeInsufficientBalance, "account %s holds %s shares, burn of %s exceeds it", addr, acct.Shares, shares)
	}
	newTotal, err := b.state.TotalShares.Sub(shares)
	if err != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "total shares underflow")
	}
	acct.Shares = newShares
	b.state.TotalShares = newTotal
	b.stage(acct)
	return nil
}

func (b *batch) mintAmount(addr id.Address, amount fixedpoint.Value) error {
	shares, err := amount.MulDiv(fixedpoint.Base(), b.state.RewardMultiplier)
	if err != nil {
		return err
	}
	return b.mintShares(addr, shares)
}

func (b *batch) burnAmount(addr id.Address, amount fixedpoint.Value) error {
	shares, err := amount.MulDiv(fixedpoint.Base(), b.state.RewardMultiplier)
	if err != nil {
		return err
	}
	return b.burnShares(addr, shares)
}

func (b *batch) moveShares(from, to id.Address, shares fixedpoint.Value) error {
	if err := b.burnShares(from, shares); err != nil {
		return err
	}
	// Total dipped in burnShares; minting restores it, so the pair is a
	// pure move.
	return b.mintShares(to, shares)
}

// commit applies the staged change set and synchronizes the holder index.
// The index update happens only after the store accepted the writes.
func (s *Service) commit(ctx context.Context, b *batch) error {
	change := models.ChangeSet{State: &b.state}
	for _, addr := range b.touched {
		change.Accounts = append(change.Accounts, b.staged[addr])
	}
	if err := s.store.Apply(ctx, change); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger write failed")
	}
	for _, addr := range b.touched {
		s.index.Sync(addr, !b.staged[addr].Shares.IsZero())
	}
	s.metrics.SetHolders(s.index.Len())
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
