package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/carwash-dashboard/internal/config"
	"github.com/iliyamo/carwash-dashboard/internal/security"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var opsTokenCmd = &cobra.Command{
	Use:   "ops-token",
	Short: "Mint a bearer token for the diagnostics endpoints",
	Long: `ops-token signs a short-lived JWT with JWT_SECRET. Monitoring tools send it
as "Authorization: Bearer <token>" to /v1/admin/diag/*. The token grants
read-only diagnostics and nothing else.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.OpsTokenTTL
		}
		tok, err := security.NewOpsToken(cfg.JWTSecret, tokenSubject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.Exp.Format(time.RFC3339))
		return nil
	},
}

func init() {
	opsTokenCmd.Flags().StringVar(&tokenSubject, "subject", "monitoring", "Token subject recorded in request logs")
	opsTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Lifetime (default OPS_TOKEN_TTL)")
}
