package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction handle to repositories through tx.
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
// Repositories must accept a nil tx and fall back to the pool.
//
// Locks taken through MessageRecordRepository.Lock live exactly as long as
// the transaction, so a reconcile keeps the booking serialized from its first
// read to its last write.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
