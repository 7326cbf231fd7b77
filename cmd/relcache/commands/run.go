package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/relcache/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the caching agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			once, _ := cmd.Flags().GetBool("once")
			watch, _ := cmd.Flags().GetBool("watch")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			return c.app.Run(cmd.Context(), app.RunOptions{
				ConfigPath:  configPath(cmd),
				Once:        once,
				Watch:       watch,
				MetricsAddr: metricsAddr,
			})
		},
	}
	cmd.Flags().Bool("once", false, "Run every agent once and exit")
	cmd.Flags().BoolP("watch", "w", false, "Resync agents when their source files change")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (c *CLI) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <kind> <account> <region> <name>",
		Short: "Re-ingest a single resource",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Refresh(cmd.Context(), configPath(cmd), args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s: %d committed, %d evicted, %d rejected\n",
				args[3], result.Committed, result.Evicted, result.Rejected)
			return err
		},
	}
}
