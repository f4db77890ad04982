package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"xftledger/internal/intake/models"
	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/sentinel"
	"xftledger/pkg/platform/tx"
)

// PostgresStore persists pending requests in PostgreSQL. The schema lives in
// internal/platform/postgres; amounts are stored as numeric(78,0) raw
// fixed-point integers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is the subset of *sql.DB and *sql.Tx the store uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn joins a caller-scoped transaction when one is on the context.
func (s *PostgresStore) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	query := `
		INSERT INTO intake_requests (id, account, kind, amount, request_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID), req.Account.String(), string(req.Kind),
		req.Amount.BigInt().String(), req.RequestDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("create request %s: %w", req.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `
		SELECT id, account, kind, amount, request_date
		FROM intake_requests
		WHERE id = $1
	`
	req, err := scanRequest(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ByAccount(ctx context.Context, account id.Address) ([]*models.Request, error) {
	query := `
		SELECT id, account, kind, amount, request_date
		FROM intake_requests
		WHERE account = $1
		ORDER BY request_date
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, requestID id.RequestID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM intake_requests WHERE id = $1`, uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		rawID      uuid.UUID
		rawAccount string
		rawKind    string
		rawAmount  string
		req        models.Request
	)
	if err := row.Scan(&rawID, &rawAccount, &rawKind, &rawAmount, &req.RequestDate); err != nil {
		return nil, err
	}
	account, err := id.ParseAddress(rawAccount)
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(rawAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", rawAmount)
	}
	amount, err := fixedpoint.FromBigInt(n)
	if err != nil {
		return nil, err
	}
	req.ID = id.RequestID(rawID)
	req.Account = account
	req.Kind = models.Kind(rawKind)
	req.Amount = amount
	return &req, nil
}
