package domain

import "context"

// Store groups the repositories the engine writes to so that a command's
// account and ledger updates can share one unit of work.
type Store interface {
	Transactions() TransactionRepository
	Accounts() AccountRepository
	// WithTransaction runs fn against a Store scoped to one unit of work.
	// Backends without transactions run fn directly.
	WithTransaction(ctx context.Context, fn func(Store) error) error
	Close() error
}
