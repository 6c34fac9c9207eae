package main

import (
	"fmt"

	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/di"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/dynamodb"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the configured store",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations, or create the DynamoDB table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.migrationTarget()
			if err != nil {
				return err
			}
			switch cfg.StoreBackend {
			case config.BackendPostgres:
				return postgres.MigrateUp(cfg.DatabaseURL, logger)
			case config.BackendDynamoDB:
				awsCfg, err := di.ProvideAWSConfig(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				indexes := dynamodb.Indexes{
					BySource: cfg.SourceIndexName,
					ByTarget: cfg.TargetIndexName,
					All:      cfg.AllLinksIndexName,
				}
				return dynamodb.EnsureTable(cmd.Context(), di.ProvideDynamoDBClient(awsCfg, cfg), cfg.DynamoDBTable, indexes, logger)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "backend %s has no schema\n", cfg.StoreBackend)
				return nil
			}
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.migrationTarget()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate down is only supported for the postgres backend, not %s", cfg.StoreBackend)
			}
			return postgres.MigrateDown(cfg.DatabaseURL, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied Postgres schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.migrationTarget()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate version is only supported for the postgres backend, not %s", cfg.StoreBackend)
			}
			v, dirty, err := postgres.MigrationVersion(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"version": v, "dirty": dirty})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func (c *cli) migrationTarget() (*config.Config, *zap.Logger, error) {
	cfg, err := c.load(c.verbose)
	if err != nil {
		return nil, nil, err
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Named("migrate"), nil
}
