// Command ctl runs one-off admin tasks against the conflict radar store:
// seeding, conflict management and dry runs of the pipeline stages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DeafMist/conflict-radar/backend/internal/config"
	"github.com/DeafMist/conflict-radar/backend/internal/logger"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(logger.New("ctl")).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	log    *slog.Logger
	cfg    *config.Ctl
	dbPath string
	asJSON bool
}

func newRootCmd(log *slog.Logger) *cobra.Command {
	a := &app{log: logger.OrDiscard(log)}

	root := &cobra.Command{
		Use:   "ctl",
		Short: "Admin tool for the conflict radar processor",
		Long: `ctl seeds conflicts and sources, toggles conflicts and dry-runs the
classifier, tagger and geocoder against the processor's store.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadCtl()
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "output as JSON")

	root.AddCommand(
		a.seedCmd(),
		a.conflictsCmd(),
		a.statusCmd(),
		a.classifyCmd(),
		a.geocodeCmd(),
	)
	return root
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.DBPath, err)
	}
	return st, nil
}
