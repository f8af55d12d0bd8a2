package domain

import (
	"context"

	"github.com/shopspring/decimal"

	"payments-engine/internal/errors"
)

// Transaction is the ledger's record of a transaction's current state. ID,
// Client and Amount are fixed when the record is created; only Kind moves.
type Transaction struct {
	ID     TransactionID   `json:"tx"`
	Client ClientID        `json:"client"`
	Amount decimal.Decimal `json:"amount"`
	Kind   Kind            `json:"type"`
}

type TransactionRepository interface {
	// GetTransaction returns nil, nil when no record exists for id.
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	SaveTransaction(ctx context.Context, tx Transaction) (TransactionID, error)
	ListTransactionsByClient(ctx context.Context, client ClientID) ([]Transaction, error)
}

// Advance computes the next ledger record for cmd given the stored record, or
// rejects the command. It has no side effects; the caller persists the result.
func Advance(stored *Transaction, cmd Command) (Transaction, error) {
	if stored == nil {
		if !cmd.Kind.IsRoot() {
			return Transaction{}, errors.ErrRootTransactionRequired.WithDetails(cmd.Kind.String())
		}
		return Transaction{
			ID:     cmd.ID,
			Client: cmd.Client,
			Amount: cmd.Amount,
			Kind:   cmd.Kind,
		}, nil
	}

	if cmd.ID != stored.ID {
		return Transaction{}, errors.NewAppErrorf(errors.UnexpectedTransaction,
			"command for transaction %d resolved to stored transaction %d", cmd.ID, stored.ID)
	}
	if cmd.Client != stored.Client {
		return Transaction{}, errors.NewAppErrorf(errors.UnexpectedClient,
			"client %d cannot act on transaction %d", cmd.Client, stored.ID)
	}

	if !canTransition(stored.Kind, cmd.Kind) {
		return Transaction{}, invalidTransition(stored.Kind, cmd.Kind)
	}

	next := *stored
	next.Kind = cmd.Kind
	return next, nil
}

// canTransition is the full transition table. Every pair not listed is illegal.
func canTransition(from, to Kind) bool {
	switch from {
	case KindDeposit, KindWithdrawal:
		return to == KindDispute
	case KindDispute:
		return to == KindResolve || to == KindChargeBack
	default:
		return false
	}
}

func invalidTransition(from, to Kind) *errors.AppError {
	return errors.NewAppErrorf(errors.InvalidTransition, "unable to move transaction from %s to %s", from, to)
}
