package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/fusion"
)

var testConnectionJSON bool

func newTestConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check the Fusion credentials and endpoint",
		Long: `Issue a minimal authenticated request (ledgers, limit=1) against the Fusion
REST API and report the outcome. Nothing is written to APEX.`,
		Example: `  fusion-sync test-connection
  fusion-sync test-connection --json`,
		RunE: testConnectionRun,
	}

	cmd.Flags().BoolVar(&testConnectionJSON, "json", false, "print the result as JSON")

	return cmd
}

func testConnectionRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	src := &globalCfg.Source
	src.Credentials.Normalize()
	src.Endpoints.Normalize()
	if err := src.Credentials.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	client := fusion.NewClient(fusion.Config{
		Credentials: src.Credentials,
		Endpoints:   src.Endpoints,
		Timeout:     src.Timeout,
		Logger:      logger.With("component", "fusion"),
	})

	result := client.TestConnection(cmd.Context())
	out := cmd.OutOrStdout()

	if testConnectionJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Fprintf(out, "OK: %s (HTTP %d)\n", src.Credentials.InstanceURL, result.StatusCode)
	} else {
		fmt.Fprintf(out, "FAILED: %s\n", src.Credentials.InstanceURL)
		fmt.Fprintf(out, "  Kind:   %s\n", result.Kind)
		if result.StatusCode != 0 {
			fmt.Fprintf(out, "  Status: %d\n", result.StatusCode)
		}
		fmt.Fprintf(out, "  Error:  %s\n", result.Error)
	}

	if !result.Success {
		return fmt.Errorf("connection test failed")
	}
	return nil
}
