package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"payments-engine/internal/domain"
	"payments-engine/internal/errors"
	"payments-engine/internal/metrics"
)

const shardBuffer = 64

// Stage names the step of Process that rejected a command.
type Stage string

const (
	StageInput       Stage = "input"
	StageTransaction Stage = "transaction"
	StageAccount     Stage = "account"
	StageStorage     Stage = "storage"
)

// ProcessError reports why a single command was not applied.
type ProcessError struct {
	Stage  Stage
	TxID   domain.TransactionID
	Client domain.ClientID
	Kind   domain.Kind
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s tx %d client %d rejected at %s stage: %v", e.Kind, e.TxID, e.Client, e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Summary describes one batch run. Serialized counts commands whose
// transaction id was already bound to another worker than their client's,
// and which therefore ran alone after every worker drained.
type Summary struct {
	RunID      string
	Processed  int64
	Failed     int64
	Skipped    int64
	Serialized int64
	Duration   time.Duration
}

type Option func(*PaymentsEngine)

// WithWorkers shards batch runs over n goroutines keyed by client id.
func WithWorkers(n int) Option {
	return func(e *PaymentsEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *PaymentsEngine) {
		e.metrics = m
	}
}

// PaymentsEngine applies commands to the ledger and the account store.
type PaymentsEngine struct {
	store       domain.Store
	logger      *zap.Logger
	metrics     *metrics.Metrics
	workers     int
	txLocks     *keyedMutex
	clientLocks *keyedMutex
}

func NewPaymentsEngine(store domain.Store, logger *zap.Logger, opts ...Option) *PaymentsEngine {
	e := &PaymentsEngine{
		store:       store,
		logger:      logger,
		workers:     1,
		txLocks:     newKeyedMutex(),
		clientLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process applies one command and returns the resulting ledger record.
//
// The account is saved before the ledger entry. With a store that cannot roll
// back, a failed ledger write leaves the account updated while the command is
// still reported as failed.
func (e *PaymentsEngine) Process(ctx context.Context, cmd domain.Command) (domain.Transaction, error) {
	start := time.Now()

	if err := cmd.Validate(); err != nil {
		err = newProcessError(StageInput, cmd, err)
		e.metrics.ObserveCommand(cmd.Kind.String(), string(errors.CodeOf(err)), time.Since(start))
		return domain.Transaction{}, err
	}

	// Lock order is always transaction then client.
	unlockTx := e.txLocks.Lock(uint64(cmd.ID))
	defer unlockTx()
	unlockClient := e.clientLocks.Lock(uint64(cmd.Client))
	defer unlockClient()

	var result domain.Transaction
	err := e.store.WithTransaction(ctx, func(s domain.Store) error {
		stored, err := s.Transactions().GetTransaction(ctx, cmd.ID)
		if err != nil {
			return newProcessError(StageStorage, cmd, err)
		}

		txn, err := domain.Advance(stored, cmd)
		if err != nil {
			return newProcessError(StageTransaction, cmd, err)
		}

		account, err := s.Accounts().GetAccount(ctx, txn.Client)
		if err != nil {
			return newProcessError(StageStorage, cmd, err)
		}

		var next domain.Account
		if account == nil {
			next, err = domain.OpenAccount(txn)
		} else {
			next, err = account.Apply(txn)
		}
		if err != nil {
			return newProcessError(StageAccount, cmd, err)
		}

		if _, err := s.Accounts().SaveAccount(ctx, next); err != nil {
			return newProcessError(StageStorage, cmd, err)
		}
		if _, err := s.Transactions().SaveTransaction(ctx, txn); err != nil {
			return newProcessError(StageStorage, cmd, err)
		}

		result = txn
		return nil
	})

	if err != nil {
		var procErr *ProcessError
		if !stderrors.As(err, &procErr) {
			err = newProcessError(StageStorage, cmd, err)
		}
		e.metrics.ObserveCommand(cmd.Kind.String(), string(errors.CodeOf(err)), time.Since(start))
		return domain.Transaction{}, err
	}

	e.metrics.ObserveCommand(cmd.Kind.String(), metrics.OutcomeProcessed, time.Since(start))
	return result, nil
}

func newProcessError(stage Stage, cmd domain.Command, err error) *ProcessError {
	return &ProcessError{
		Stage:  stage,
		TxID:   cmd.ID,
		Client: cmd.Client,
		Kind:   cmd.Kind,
		Err:    err,
	}
}

// Run processes every command received on commands until the channel is
// closed or ctx is cancelled. Rejected commands are logged and counted; they
// never stop the run.
//
// Commands are sharded by client id. Each transaction id is bound to the
// shard of the first command that names it; a later command for that id whose
// client maps to another shard waits for every shard to drain and then runs
// on the dispatcher. Commands sharing a client or a transaction id are thus
// applied in arrival order, whatever the worker count.
func (e *PaymentsEngine) Run(ctx context.Context, commands <-chan domain.Command) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := e.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("Batch run started", zap.Int("workers", e.workers))

	var processed, failed, skipped, serialized atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	handle := func(cmd domain.Command) {
		if gctx.Err() != nil {
			skipped.Add(1)
			return
		}
		if _, err := e.Process(gctx, cmd); err != nil {
			failed.Add(1)
			logRejection(logger, cmd, err)
			return
		}
		processed.Add(1)
	}

	// inflight counts commands handed to a shard and not yet handled.
	var inflight sync.WaitGroup
	shards := make([]chan domain.Command, e.workers)
	for i := range shards {
		shard := make(chan domain.Command, shardBuffer)
		shards[i] = shard

		g.Go(func() error {
			for cmd := range shard {
				handle(cmd)
				inflight.Done()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, shard := range shards {
				close(shard)
			}
		}()

		var owners map[domain.TransactionID]int
		if len(shards) > 1 {
			owners = make(map[domain.TransactionID]int)
		}

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case cmd, ok := <-commands:
				if !ok {
					return nil
				}

				target := int(cmd.Client) % len(shards)
				if owners != nil {
					owner, seen := owners[cmd.ID]
					if !seen {
						owners[cmd.ID] = target
					} else if owner != target {
						inflight.Wait()
						serialized.Add(1)
						logger.Debug("Transaction id shared across shards, running serially",
							zap.Uint32("tx", uint32(cmd.ID)),
							zap.Uint16("client", uint16(cmd.Client)))
						handle(cmd)
						continue
					}
				}

				inflight.Add(1)
				select {
				case shards[target] <- cmd:
				case <-gctx.Done():
					inflight.Done()
					return gctx.Err()
				}
			}
		}
	})

	err := g.Wait()

	summary.Processed = processed.Load()
	summary.Failed = failed.Load()
	summary.Skipped = skipped.Load()
	summary.Serialized = serialized.Load()
	summary.Duration = time.Since(start)

	logger.Info("Batch run finished",
		zap.Int64("processed", summary.Processed),
		zap.Int64("failed", summary.Failed),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("serialized", summary.Serialized),
		zap.Duration("duration", summary.Duration),
		zap.Error(err))

	return summary, err
}

func logRejection(logger *zap.Logger, cmd domain.Command, err error) {
	fields := []zap.Field{
		zap.Uint32("tx", uint32(cmd.ID)),
		zap.Uint16("client", uint16(cmd.Client)),
		zap.Stringer("kind", cmd.Kind),
		zap.String("code", string(errors.CodeOf(err))),
		zap.Error(err),
	}

	var procErr *ProcessError
	if stderrors.As(err, &procErr) {
		fields = append(fields, zap.String("stage", string(procErr.Stage)))
		if procErr.Stage == StageStorage {
			logger.Error("Command failed", fields...)
			return
		}
	}
	logger.Warn("Command rejected", fields...)
}

// Accounts returns every account ordered by client id.
func (e *PaymentsEngine) Accounts(ctx context.Context) ([]domain.Account, error) {
	return e.store.Accounts().ListAccounts(ctx)
}

func (e *PaymentsEngine) Account(ctx context.Context, client domain.ClientID) (*domain.Account, error) {
	account, err := e.store.Accounts().GetAccount(ctx, client)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errors.ErrAccountNotFound
	}
	return account, nil
}

func (e *PaymentsEngine) Transactions(ctx context.Context, client domain.ClientID) ([]domain.Transaction, error) {
	return e.store.Transactions().ListTransactionsByClient(ctx, client)
}
