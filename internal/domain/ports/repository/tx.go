package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres). Repositories MUST gracefully accept NoTX (nil)
// and fall back to their non-transactional executor.
type Tx interface{}

var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`. Keeping the handle opaque keeps
// use-case signatures free of driver types while still letting repository
// implementations run SELECT ... FOR UPDATE inside the same transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
