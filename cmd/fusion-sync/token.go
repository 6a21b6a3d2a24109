package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a Bearer token for the operations API",
		Long: `Sign an HS256 token with http.api_secret (or API_SECRET) for use against
"fusion-sync serve".`,
		Example: `  fusion-sync token --subject ops --ttl 24h`,
		RunE:    tokenRun,
	}

	cmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")

	return cmd
}

func tokenRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalCfg.HTTP.APISecret == "" {
		return fmt.Errorf("http.api_secret is not set")
	}
	if tokenTTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	token, err := auth.NewAdapter(globalCfg.HTTP.APISecret).IssueToken(tokenSubject, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
