package domain

import (
	"context"

	"github.com/shopspring/decimal"

	"payments-engine/internal/errors"
)

// Account is a client's balance. Locked is one-way: once set it stays set.
type Account struct {
	Client    ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Locked    bool            `json:"locked"`
}

// Total is derived, never stored.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

type AccountRepository interface {
	// GetAccount returns nil, nil when the client has no account.
	GetAccount(ctx context.Context, client ClientID) (*Account, error)
	SaveAccount(ctx context.Context, account Account) (ClientID, error)
	// ListAccounts returns every account ordered by client id.
	ListAccounts(ctx context.Context) ([]Account, error)
}

// OpenAccount creates the account of a client from its first transaction.
func OpenAccount(first Transaction) (Account, error) {
	if first.Kind != KindDeposit {
		return Account{}, errors.ErrInvalidOpeningTransaction.WithDetails(first.Kind.String())
	}

	return Account{
		Client:    first.Client,
		Available: first.Amount,
		Held:      decimal.Zero,
	}, nil
}

// Apply returns the account after txn, or the unchanged account and an error.
//
// Dispute may drive Available below zero and Resolve/ChargeBack may drive Held
// below zero; only Withdrawal is floor-checked.
func (a Account) Apply(txn Transaction) (Account, error) {
	if a.Client != txn.Client {
		return a, errors.NewAppErrorf(errors.ClientMismatch,
			"transaction %d of client %d applied to account of client %d", txn.ID, txn.Client, a.Client)
	}
	if a.Locked {
		return a, errors.ErrAccountLocked.WithDetails(txn.Kind.String())
	}

	next := a
	switch txn.Kind {
	case KindDeposit:
		next.Available = a.Available.Add(txn.Amount)
	case KindWithdrawal:
		remaining := a.Available.Sub(txn.Amount)
		if remaining.IsNegative() {
			return a, errors.ErrInsufficientFunds.WithDetails(
				"available " + a.Available.String() + ", requested " + txn.Amount.String())
		}
		next.Available = remaining
	case KindDispute:
		next.Available = a.Available.Sub(txn.Amount)
		next.Held = a.Held.Add(txn.Amount)
	case KindResolve:
		next.Held = a.Held.Sub(txn.Amount)
		next.Available = a.Available.Add(txn.Amount)
	case KindChargeBack:
		next.Held = a.Held.Sub(txn.Amount)
		next.Locked = true
	default:
		return a, errors.NewAppErrorf(errors.InvalidInput, "unknown transaction kind %d", uint8(txn.Kind))
	}

	return next, nil
}
