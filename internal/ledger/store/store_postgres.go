package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xftledger/internal/ledger/models"
	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/sentinel"
)

// PostgresStore persists ledger state in PostgreSQL. Share counts are
// stored as numeric(78,0) raw scaled integers, wide enough for any u256
// value. Schema is owned by internal/platform/postgres; this store never
// creates tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Account(ctx context.Context, addr id.Address) (models.Account, error) {
	var (
		shares  string
		blocked bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT shares::text, blocked FROM ledger_accounts WHERE address = $1`,
		addr.String(),
	).Scan(&shares, &blocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("load account %s: %w", addr, err)
	}
	v, err := parseNumeric(shares)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s shares: %w", addr, err)
	}
	return models.Account{Address: addr, Shares: v, Blocked: blocked}, nil
}

func (s *PostgresStore) State(ctx context.Context) (models.State, error) {
	var (
		total, mult string
		decimals    int16
	)
	err := s.pool.QueryRow(ctx,
		`SELECT total_shares::text, reward_multiplier::text, decimals FROM ledger_state WHERE id = 1`,
	).Scan(&total, &mult, &decimals)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewState(), nil
	}
	if err != nil {
		return models.State{}, fmt.Errorf("load ledger state: %w", err)
	}
	totalV, err := parseNumeric(total)
	if err != nil {
		return models.State{}, fmt.Errorf("total shares: %w", err)
	}
	multV, err := parseNumeric(mult)
	if err != nil {
		return models.State{}, fmt.Errorf("reward multiplier: %w", err)
	}
	return models.State{TotalShares: totalV, RewardMultiplier: multV, Decimals: uint8(decimals)}, nil
}

// Apply writes the change set in a single transaction.
func (s *PostgresStore) Apply(ctx context.Context, change models.ChangeSet) error {
	if change.IsEmpty() {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, acct := range change.Accounts {
		_, err := tx.Exec(ctx,
			`INSERT INTO ledger_accounts (address, shares, blocked)
			 VALUES ($1, $2::numeric, $3)
			 ON CONFLICT (address) DO UPDATE SET shares = EXCLUDED.shares, blocked = EXCLUDED.blocked`,
			acct.Address.String(), acct.Shares.BigInt().String(), acct.Blocked,
		)
		if err != nil {
			return fmt.Errorf("upsert account %s: %w", acct.Address, err)
		}
	}
	if change.State != nil {
		_, err := tx.Exec(ctx,
			`INSERT INTO ledger_state (id, total_shares, reward_multiplier, decimals)
			 VALUES (1, $1::numeric, $2::numeric, $3)
			 ON CONFLICT (id) DO UPDATE SET total_shares = EXCLUDED.total_shares,
			   reward_multiplier = EXCLUDED.reward_multiplier, decimals = EXCLUDED.decimals`,
			change.State.TotalShares.BigInt().String(),
			change.State.RewardMultiplier.BigInt().String(),
			int16(change.State.Decimals),
		)
		if err != nil {
			return fmt.Errorf("upsert ledger state: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) NonZeroAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, shares::text, blocked FROM ledger_accounts WHERE shares > 0`,
	)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var (
			addr    string
			shares  string
			blocked bool
		)
		if err := rows.Scan(&addr, &shares, &blocked); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		v, err := parseNumeric(shares)
		if err != nil {
			return nil, fmt.Errorf("holder %s shares: %w", addr, err)
		}
		out = append(out, models.Account{Address: id.Address(addr), Shares: v, Blocked: blocked})
	}
	return out, rows.Err()
}

func parseNumeric(s string) (fixedpoint.Value, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fixedpoint.Value{}, fmt.Errorf("malformed numeric %q", s)
	}
	return fixedpoint.FromBigInt(i)
}
