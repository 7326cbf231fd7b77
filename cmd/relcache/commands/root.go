// Package commands implements the CLI commands for relcache.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/relcache/internal/adapters/detector"
	"go.trai.ch/relcache/internal/app"
	"go.trai.ch/relcache/internal/build"
	"go.trai.ch/relcache/internal/engine/ingest"
	"go.trai.ch/relcache/internal/engine/view"
)

// CLI represents the command line interface for relcache.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, opts app.RunOptions) error
	Refresh(ctx context.Context, configPath, kind, account, region, name string) (ingest.PassResult, error)
	Clusters(ctx context.Context, opts app.QueryOptions, application string) ([]view.Cluster, error)
	Application(ctx context.Context, opts app.QueryOptions, application string) (*view.Application, error)
	Instance(ctx context.Context, opts app.QueryOptions, account, region, name string) (*view.Instance, error)
	Keys(ctx context.Context, opts app.QueryOptions, typ, pattern string) ([]string, error)
	SetJSONLogs(enable bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "relcache",
		Short:         "A relationship cache for cloud resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to relcache.yaml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: auto, pretty or json")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		flag, _ := cmd.Flags().GetString("log-format")
		format := detector.ResolveFormat(detector.DetectEnvironment(), flag)
		c.app.SetJSONLogs(format == detector.FormatJSON)
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newRefreshCmd())
	rootCmd.AddCommand(c.newQueryCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
