package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/di"

	"github.com/spf13/cobra"
)

// serviceFactory opens the link service; the returned func releases it
type serviceFactory func(ctx context.Context, verbose bool) (*services.LinkService, func(), error)

// containerServices builds the service from environment configuration
func containerServices(ctx context.Context, verbose bool) (*services.LinkService, func(), error) {
	cfg, err := loadConfig(verbose)
	if err != nil {
		return nil, nil, err
	}
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return container.LinkService, cleanup, nil
}

func loadConfig(verbose bool) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr; keep them quiet so stdout stays parseable
	cfg.LogLevel = "warn"
	if verbose {
		cfg.LogLevel = "debug"
	}
	cfg.EnableMetrics = false
	return cfg, nil
}

// configLoader reads configuration for commands that bypass the service
type configLoader func(verbose bool) (*config.Config, error)

type cli struct {
	open    serviceFactory
	load    configLoader
	verbose bool
}

func newRootCmd(open serviceFactory, load configLoader) *cobra.Command {
	c := &cli{open: open, load: load}

	root := &cobra.Command{
		Use:   "linkctl",
		Short: "Manage links between notebook entities",
		Long: `linkctl talks to the configured link store directly.
Configuration is read from the environment and .env, the same way the API reads it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.migrateCmd(),
		c.linksCmd(),
		c.connectionsCmd(),
		c.graphCmd(),
	)
	return root
}

// withService runs fn against an opened service and releases it afterwards
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *services.LinkService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, release, err := c.open(ctx, c.verbose)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
