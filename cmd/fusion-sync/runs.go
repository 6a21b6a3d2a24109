package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect local run history",
		Long: `Inspect the run history kept in the local store (Postgres when database.url
is set, otherwise the SQLite file at database.sqlite_path).`,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List recent runs, newest first",
		Example: "  fusion-sync runs list --limit 5",
		RunE:    runsListRun,
	}
	listCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")

	getCmd := &cobra.Command{
		Use:     "get <run-id>",
		Short:   "Show one run in detail",
		Example: "  fusion-sync runs get 6f1c2b1e-3c0a-4c47-9a53-0d0a2c6c8a11",
		Args:    cobra.ExactArgs(1),
		RunE:    runsGetRun,
	}
	getCmd.Flags().BoolVar(&runsJSON, "json", false, "print the run as JSON")

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func runsListRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	h, err := openHistory(cmd.Context(), globalCfg.Database, logger)
	if err != nil {
		return err
	}
	defer h.close()

	runs, err := h.store.List(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %9s  %-22s  %8s  %8s  %6s  %s\n",
		"ID", "STARTED", "DURATION", "STATE", "INSERTED", "UPDATED", "FAILED", "ENTITIES")
	for _, r := range runs {
		totals := r.Totals()
		fmt.Fprintf(out, "%-36s  %-19s  %9s  %-22s  %8d  %8d  %6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second),
			r.State,
			totals.Inserted, totals.Updated, totals.Failed,
			entityList(r.Options.Entities),
		)
	}
	return nil
}

func runsGetRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	h, err := openHistory(cmd.Context(), globalCfg.Database, logger)
	if err != nil {
		return err
	}
	defer h.close()

	entry, err := h.store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", args[0], err)
	}

	if runsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}

	printRunSummary(cmd.OutOrStdout(), entry)
	return nil
}
