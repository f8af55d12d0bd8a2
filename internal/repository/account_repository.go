package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"payments-engine/internal/domain"
	"payments-engine/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *zap.Logger
}

func NewAccountRepository(db SQLExecutor, logger *zap.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) GetAccount(ctx context.Context, client domain.ClientID) (*domain.Account, error) {
	query := `
		SELECT client, available, held, locked
		FROM accounts WHERE client = $1
	`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, int64(client)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get account", zap.Uint16("client", uint16(client)), zap.Error(err))
		return nil, asStorageError("failed to get account", err)
	}

	return account, nil
}

func (r *accountRepository) SaveAccount(ctx context.Context, account domain.Account) (domain.ClientID, error) {
	query := `
		INSERT INTO accounts (client, available, held, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client) DO UPDATE SET
			available = excluded.available,
			held = excluded.held,
			locked = excluded.locked,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		int64(account.Client),
		account.Available.String(),
		account.Held.String(),
		account.Locked,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to save account", zap.Uint16("client", uint16(account.Client)), zap.Error(err))
		return 0, storageError("failed to save account", err)
	}

	r.logger.Debug("Account saved",
		zap.Uint16("client", uint16(account.Client)),
		zap.Stringer("available", account.Available),
		zap.Stringer("held", account.Held),
		zap.Bool("locked", account.Locked))
	return account.Client, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT client, available, held, locked FROM accounts ORDER BY client`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", zap.Error(err))
		return nil, storageError("failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, asStorageError("failed to scan account", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list accounts", err)
	}

	return accounts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var account domain.Account
	var availableStr, heldStr string

	if err := row.Scan(&account.Client, &availableStr, &heldStr, &account.Locked); err != nil {
		return nil, err
	}

	available, err := decimal.NewFromString(availableStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse available balance").WithDetails(err.Error())
	}
	held, err := decimal.NewFromString(heldStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse held balance").WithDetails(err.Error())
	}

	account.Available = available
	account.Held = held
	return &account, nil
}

// asStorageError keeps AppErrors raised while decoding a row and wraps
// everything else as a storage failure.
func asStorageError(message string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return storageError(message, err)
}
