// Package cli implements the splitledger command-line tool. Commands work
// directly on the SQLite database the server uses.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/report"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// app carries state resolved in PersistentPreRunE to the subcommands.
type app struct {
	dbPath string
	output string
	roster string

	members *calculator.Roster
	store   storage.Store
	format  report.Formatter
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	a := &app{}
	rootCmd := newRootCmd(a)
	if err := run(context.Background(), a, rootCmd, os.Args[1:]); err != nil {
		if a.output == outputJSON {
			_ = report.WriteJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// run executes rootCmd with args and closes the store whether or not the
// command succeeded.
func run(ctx context.Context, a *app, rootCmd *cobra.Command, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
		a.store = nil
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "splitledger",
		Short:         "Track shared expenses and settle up",
		Long:          "Record group expenses, see who owes whom and the fewest payments that settle every balance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", outputTable, "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&a.roster, "roster", "", "Comma separated member list (default from ROSTER / ROSTER_FILE)")

	rootCmd.AddCommand(
		newMembersCmd(a),
		newAddCmd(a),
		newDeleteCmd(a),
		newHistoryCmd(a),
		newArchiveCmd(a),
		newBalancesCmd(a),
		newSettleCmd(a),
		newClearCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.output != outputTable && a.output != outputJSON {
		return fmt.Errorf("invalid output format %q: must be %q or %q", a.output, outputTable, outputJSON)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.SetupWithOptions(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	names := cfg.Roster
	if a.roster != "" {
		names = config.ParseRoster(a.roster)
	}
	a.members, err = calculator.NewRoster(names)
	if err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}
	a.format = report.Formatter{Currency: cfg.CurrencyLabel}

	if a.dbPath == "" {
		a.dbPath = cfg.DBPath
	}
	store, err := sqlite.New(a.dbPath)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) jsonOutput() bool {
	return a.output == outputJSON
}

func (a *app) buildReport(ctx context.Context) (*ledger.Report, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read expenses: %w", err)
	}
	return ledger.Build(snap, a.members)
}

func writeLine(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}
