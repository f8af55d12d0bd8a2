// Package memory keeps the ledger and account store in process memory. It is
// the default backend for batch runs, where state only has to survive the run.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"payments-engine/internal/domain"
)

// Store implements domain.Store over two guarded maps. WithTransaction does not
// roll back: if the account save succeeds and the ledger save fails, the
// account change stays.
type Store struct {
	transactions *TransactionRepository
	accounts     *AccountRepository
	logger       *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		transactions: NewTransactionRepository(),
		accounts:     NewAccountRepository(),
		logger:       logger,
	}
}

func (s *Store) Transactions() domain.TransactionRepository { return s.transactions }

func (s *Store) Accounts() domain.AccountRepository { return s.accounts }

func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	return fn(s)
}

func (s *Store) Close() error {
	s.logger.Debug("memory store closed",
		zap.Int("transactions", s.transactions.Len()),
		zap.Int("accounts", s.accounts.Len()))
	return nil
}

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[domain.TransactionID]domain.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[domain.TransactionID]domain.Transaction),
	}
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, id domain.TransactionID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (r *TransactionRepository) SaveTransaction(ctx context.Context, tx domain.Transaction) (domain.TransactionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (r *TransactionRepository) ListTransactionsByClient(ctx context.Context, client domain.ClientID) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.Client == client {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TransactionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transactions)
}

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[domain.ClientID]domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[domain.ClientID]domain.Account),
	}
}

func (r *AccountRepository) GetAccount(ctx context.Context, client domain.ClientID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[client]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

func (r *AccountRepository) SaveAccount(ctx context.Context, account domain.Account) (domain.ClientID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[account.Client] = account
	return account.Client, nil
}

func (r *AccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out, nil
}

func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
