package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/platform/tx"
)

const defaultIntakeTxTimeout = 5 * time.Second

// intakePostgresTx runs intake store operations inside one SQL transaction,
// so the consume path's read and delete commit together.
type intakePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newIntakePostgresTx(db *sql.DB) *intakePostgresTx {
	return &intakePostgresTx{db: db}
}

func (t *intakePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultIntakeTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}
