// Package cli holds the cobra commands of the payments binary.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"payments-engine/internal/config"
	"payments-engine/internal/domain"
	"payments-engine/internal/logging"
	"payments-engine/internal/repository"
	"payments-engine/internal/repository/memory"
)

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRootCmd builds the command tree. Each call gets its own viper instance
// so commands can be built repeatedly in tests.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "payments <transactions.csv>",
		Short: "Payments engine",
		Long: `Replays a CSV stream of deposits, withdrawals, disputes, resolves and
chargebacks, and prints the resulting client accounts as CSV on stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is config.yaml)")
	flags.Int("workers", 1, "number of engine workers; commands are sharded by client")
	flags.String("storage-driver", "memory", "storage backend: memory, sqlite3 or postgres")
	flags.String("storage-dsn", "", "data source name for sqlite3 or postgres")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "console", "log format: json or console")

	for key, flag := range map[string]string{
		"engine.workers": "workers",
		"storage.driver": "storage-driver",
		"storage.dsn":    "storage-dsn",
		"log.level":      "log-level",
		"log.format":     "log-format",
	} {
		// BindPFlag only fails on a nil flag.
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	}
	return nil
}

// openStore returns the backend named by storage.driver.
func (a *app) openStore(ctx context.Context) (domain.Store, error) {
	switch a.cfg.Storage.Driver {
	case "memory":
		return memory.NewStore(a.logger), nil
	case repository.DriverSQLite, repository.DriverPostgres:
		return repository.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN, a.logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", a.cfg.Storage.Driver)
	}
}
