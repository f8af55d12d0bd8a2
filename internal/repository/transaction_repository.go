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

type transactionRepository struct {
	db     SQLExecutor
	logger *zap.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *zap.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// SaveTransaction upserts by id. Only the kind is updated on conflict since
// client and amount never change after creation.
func (r *transactionRepository) SaveTransaction(ctx context.Context, tx domain.Transaction) (domain.TransactionID, error) {
	query := `
		INSERT INTO transactions (id, client, amount, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		int64(tx.ID),
		int64(tx.Client),
		tx.Amount.String(),
		tx.Kind.String(),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to save transaction",
			zap.Uint32("tx", uint32(tx.ID)),
			zap.Uint16("client", uint16(tx.Client)),
			zap.Stringer("kind", tx.Kind),
			zap.Error(err))
		return 0, storageError("failed to save transaction", err)
	}

	r.logger.Debug("Transaction saved", zap.Uint32("tx", uint32(tx.ID)), zap.Stringer("kind", tx.Kind))
	return tx.ID, nil
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id domain.TransactionID) (*domain.Transaction, error) {
	query := `
		SELECT id, client, amount, kind
		FROM transactions WHERE id = $1
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", zap.Uint32("tx", uint32(id)), zap.Error(err))
		return nil, asStorageError("failed to get transaction", err)
	}

	return tx, nil
}

func (r *transactionRepository) ListTransactionsByClient(ctx context.Context, client domain.ClientID) ([]domain.Transaction, error) {
	query := `
		SELECT id, client, amount, kind
		FROM transactions WHERE client = $1 ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, int64(client))
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Uint16("client", uint16(client)), zap.Error(err))
		return nil, storageError("failed to list transactions", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, asStorageError("failed to scan transaction", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list transactions", err)
	}

	return txs, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr, kindStr string

	if err := row.Scan(&tx.ID, &tx.Client, &amountStr, &kindStr); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	kind, err := domain.ParseKind(kindStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse kind").WithDetails(err.Error())
	}

	tx.Amount = amount
	tx.Kind = kind
	return &tx, nil
}
