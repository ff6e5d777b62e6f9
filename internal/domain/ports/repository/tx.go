package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside one database transaction and passes the
// infra-defined handle (pgx.Tx for Postgres) to repositories through tx.
// fn returning an error rolls everything back; nothing fn wrote is observable.
// Repositories MUST accept NoTX (nil) as the non-transactional path.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
