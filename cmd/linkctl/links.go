package main

import (
	"context"
	"fmt"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/spf13/cobra"
)

func (c *cli) linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Create, inspect and delete links",
	}
	cmd.AddCommand(
		c.linksCreateCmd(),
		c.linksGetCmd(),
		c.linksDeleteCmd(),
		c.linksListCmd(),
		c.linksSearchCmd(),
	)
	return cmd
}

func (c *cli) linksCreateCmd() *cobra.Command {
	var (
		metadata      string
		bidirectional bool
	)

	cmd := &cobra.Command{
		Use:   "create [sourceType] [sourceId] [targetType] [targetId]",
		Short: "Create a link",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := entities.LinkInput{
				SourceType: args[0],
				SourceID:   args[1],
				TargetType: args[2],
				TargetID:   args[3],
			}
			if cmd.Flags().Changed("metadata") {
				input.Metadata = &metadata
			}

			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				if bidirectional {
					pair, err := svc.CreateBidirectionalLink(ctx, input)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), pair)
				}
				link, err := svc.CreateLink(ctx, input)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), link)
			})
		},
	}
	cmd.Flags().StringVar(&metadata, "metadata", "", "Free-form metadata stored on the link")
	cmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "Also create the reverse link")
	return cmd
}

func (c *cli) linksGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				link, err := svc.GetLink(ctx, args[0])
				if err != nil {
					return err
				}
				if link == nil {
					return apperrors.NewNotFoundError("link")
				}
				return printJSON(cmd.OutOrStdout(), link)
			})
		},
	}
}

func (c *cli) linksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				if err := svc.DeleteLink(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) linksListCmd() *cobra.Command {
	var (
		filter services.LinkFilterInput
		page   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List links, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := services.ParseLinkFilter(filter)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				result, err := svc.ListLinks(ctx, parsed, page, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&filter.SourceType, "source-type", "", "Filter by source entity type")
	cmd.Flags().StringVar(&filter.SourceID, "source-id", "", "Filter by source entity id")
	cmd.Flags().StringVar(&filter.TargetType, "target-type", "", "Filter by target entity type")
	cmd.Flags().StringVar(&filter.TargetID, "target-id", "", "Filter by target entity id")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "Page size")
	return cmd
}

func (c *cli) linksSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find links whose metadata contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				links, err := svc.SearchLinks(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), links)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results, 0 for the default")
	return cmd
}

func (c *cli) connectionsCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "connections [entityType] [entityId]",
		Short: "Show backlinks and outgoing links of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				if purge {
					removed, err := svc.DeleteLinksForEntity(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": removed})
				}
				conns, err := svc.GetEntityConnections(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), conns)
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete every link touching the entity instead")
	return cmd
}

func (c *cli) graphCmd() *cobra.Command {
	var (
		query services.GraphQuery
		depth int
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the node/edge graph around an entity, or of the newest links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("depth") {
				query.MaxDepth = &depth
			}
			return c.withService(cmd, func(ctx context.Context, svc *services.LinkService) error {
				graph, err := svc.GetLinkGraph(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), graph)
			})
		},
	}
	cmd.Flags().StringVar(&query.EntityType, "entity-type", "", "Entity type to start from")
	cmd.Flags().StringVar(&query.EntityID, "entity-id", "", "Entity id to start from")
	cmd.Flags().IntVar(&depth, "depth", 0, "Hops to expand")
	return cmd
}
