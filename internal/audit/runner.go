package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Mutator is the only way application code reaches a mutating transaction.
// Every transaction it opens has the acting identity applied before the
// mutation runs, so the store-side audit triggers always attribute the
// change; no caller can opt out.
type Mutator interface {
	Mutate(ctx context.Context, fn func(pgx.Tx) error) error
}

// TxRunner opens a transaction and runs fn inside it, committing on nil and
// rolling back on error. db.Connection satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Runner implements Mutator on top of a TxRunner. When the context carries no
// acting user (the migration pipeline itself), the configured service
// identity is attributed instead.
type Runner struct {
	db              TxRunner
	serviceIdentity string
}

func NewRunner(db TxRunner, serviceIdentity string) *Runner {
	if serviceIdentity == "" {
		serviceIdentity = "annex-migrate"
	}
	return &Runner{db: db, serviceIdentity: serviceIdentity}
}

// Actor resolves the identity that will be attributed to mutations under ctx.
func (r *Runner) Actor(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return r.serviceIdentity
}

// Mutate runs fn inside a transaction with audit.user_id set for its
// duration. set_config(..., true) scopes the setting to the transaction, so
// the audit_trigger() function reads it for every row the transaction
// touches and it leaks into nothing else on the connection.
func (r *Runner) Mutate(ctx context.Context, fn func(pgx.Tx) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT set_config('audit.user_id', $1, true)", r.Actor(ctx)); err != nil {
			return fmt.Errorf("failed to set audit identity: %w", err)
		}
		return fn(tx)
	})
}
