package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusion-sync/internal/config"
	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

var (
	runEntities []string
	runFrom     string
	runTo       string
	runLedger   int64
	runStatus   string
	runPageSize int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one GL sync and wait for it to finish",
		Long: `Run one sync from Oracle Fusion to APEX in the foreground.

Entity types are applied in FK-safe order: chart_of_accounts, ledgers,
batches, headers, lines. Headers are fetched per loaded batch and lines per
loaded header. Flags override the sync section of the config file.

The command exits non-zero when the run did not succeed. Ctrl-C cancels the
run after the current page; the run is still logged to APEX.`,
		Example: `  fusion-sync run
  fusion-sync run --entities batches,headers,lines --status POSTED
  fusion-sync run --from 2024-01-01 --to 2024-01-31 --ledger 300000046975971
  fusion-sync run --entities chart_of_accounts,ledgers --page-size 100`,
		RunE: runRun,
	}

	cmd.Flags().StringSliceVar(&runEntities, "entities", nil, "comma-separated entity types (batches, headers, lines, chart_of_accounts, ledgers)")
	cmd.Flags().StringVar(&runFrom, "from", "", "earliest batch creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&runTo, "to", "", "latest batch creation date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&runLedger, "ledger", 0, "restrict batches to one ledger id")
	cmd.Flags().StringVar(&runStatus, "status", "", "restrict batches to one status (e.g. POSTED)")
	cmd.Flags().IntVar(&runPageSize, "page-size", 0, "records per page (1-500)")

	return cmd
}

// applyRunFlags copies explicitly set flags onto the sync config.
func applyRunFlags(cmd *cobra.Command, sync *config.SyncConfig) {
	flags := cmd.Flags()
	if flags.Changed("entities") {
		sync.Entities = runEntities
	}
	if flags.Changed("from") {
		sync.CreatedFrom = runFrom
	}
	if flags.Changed("to") {
		sync.CreatedTo = runTo
	}
	if flags.Changed("ledger") {
		ledger := runLedger
		sync.LedgerID = &ledger
	}
	if flags.Changed("status") {
		sync.Status = runStatus
	}
	if flags.Changed("page-size") {
		sync.PageSize = runPageSize
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	applyRunFlags(cmd, &globalCfg.Sync)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, globalCfg, logger)
	if err != nil {
		return err
	}
	globalApp = a

	opts, err := globalCfg.Sync.RunOptions()
	if err != nil {
		return err
	}
	opts.TriggeredBy = "cli"

	entry, err := a.service.Run(ctx, opts)
	if err != nil {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), entry)

	if !entry.Success {
		return fmt.Errorf("sync %s finished with errors", entry.ID)
	}
	return nil
}

// printRunSummary writes a human-readable report of one run.
func printRunSummary(w io.Writer, entry *domain.SyncLogEntry) {
	fmt.Fprintf(w, "Run %s: %s\n", entry.ID, entry.State)
	fmt.Fprintf(w, "  Started:  %s\n", entry.StartedAt.Format(time.RFC3339))
	if entry.CompletedAt != nil {
		fmt.Fprintf(w, "  Duration: %s\n", entry.Duration().Round(time.Millisecond))
	}
	if entry.JobID != "" {
		fmt.Fprintf(w, "  Job ID:   %s\n", entry.JobID)
	}
	if entry.Options.TriggeredBy != "" {
		fmt.Fprintf(w, "  Trigger:  %s\n", entry.Options.TriggeredBy)
	}
	if entry.Cancelled {
		fmt.Fprintln(w, "  Cancelled before completion")
	}

	fmt.Fprintf(w, "\n  %-18s %-22s %9s %9s %9s\n", "ENTITY", "STATE", "INSERTED", "UPDATED", "FAILED")
	for _, e := range domain.SyncOrder {
		o := entry.Entities[e]
		if o == nil {
			continue
		}
		fmt.Fprintf(w, "  %-18s %-22s %9d %9d %9d\n", e, o.State, o.Inserted, o.Updated, o.Failed)
	}

	totals := entry.Totals()
	fmt.Fprintf(w, "  %-18s %-22s %9d %9d %9d\n", "TOTAL", "", totals.Inserted, totals.Updated, totals.Failed)

	if len(entry.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range entry.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

// entityList renders selected entity types for log and table output.
func entityList(entities []domain.EntityType) string {
	if len(entities) == 0 {
		return "all"
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = string(e)
	}
	return strings.Join(names, ",")
}
