package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle owned by the storage layer. Repository
// methods take one as their second argument; NoTX runs the call on the pool.
type Tx interface{}

var NoTX Tx

// TxFunc is the unit of work run inside a transaction. Returning an error
// rolls the whole unit back.
type TxFunc func(ctx context.Context, tx Tx) error

// TransactionManager runs fn in one transaction. Nested calls reuse the
// outer transaction instead of opening a new one.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn TxFunc) error
}
