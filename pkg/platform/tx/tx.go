// Package tx lets a store that opened a SQL transaction hand it to
// collaborators (the SQL audit sink) through the context, so their writes
// commit or roll back with the store's own.
package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx returns ctx carrying tx. A nil tx leaves ctx as it is.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From returns the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx, true
	}
	return nil, false
}
