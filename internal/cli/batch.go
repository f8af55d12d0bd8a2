package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"payments-engine/internal/csvio"
	"payments-engine/internal/domain"
	"payments-engine/internal/errors"
	"payments-engine/internal/service"
)

// runBatch replays the CSV at path and writes the account report to out.
// Malformed rows and rejected commands are logged; only I/O and storage
// setup failures abort the run.
func (a *app) runBatch(ctx context.Context, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reader, err := csvio.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	engine := service.NewPaymentsEngine(store, a.logger, service.WithWorkers(a.cfg.Engine.Workers))

	commands := make(chan domain.Command)
	g, gctx := errgroup.WithContext(ctx)

	var malformed int
	g.Go(func() error {
		defer close(commands)
		for {
			cmd, err := reader.Next()
			if err == io.EOF {
				return nil
			}
			var rowErr *csvio.RowError
			if stderrors.As(err, &rowErr) {
				malformed++
				a.logger.Warn("Skipping malformed row",
					zap.Int("line", rowErr.Line),
					zap.String("code", string(errors.CodeOf(rowErr))),
					zap.Error(rowErr.Err))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			select {
			case commands <- cmd:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var summary service.Summary
	g.Go(func() error {
		var err error
		summary, err = engine.Run(gctx, commands)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("Input replayed",
		zap.String("file", path),
		zap.String("run_id", summary.RunID),
		zap.Int("malformed_rows", malformed),
		zap.Int64("processed", summary.Processed),
		zap.Int64("rejected", summary.Failed))

	accounts, err := engine.Accounts(ctx)
	if err != nil {
		return err
	}
	return csvio.WriteStatements(out, accounts)
}
