package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/models"
)

func newEntityCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities in the current project",
	}

	var (
		entityType   string
		observations []string
		tags         []string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			created, err := svc.CreateEntities(cmd.Context(), p, []models.NewEntityInput{{
				Name:         args[0],
				EntityType:   entityType,
				Observations: observations,
				Tags:         tags,
			}})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created[0])
		},
	}
	add.Flags().StringVarP(&entityType, "type", "t", "", "entity type (required)")
	add.Flags().StringArrayVarP(&observations, "observation", "o", nil, "observation text (repeatable)")
	add.Flags().StringSliceVar(&tags, "tag", nil, "tags (comma separated or repeated)")
	_ = add.MarkFlagRequired("type")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show an entity with its relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			nodes, err := svc.OpenNodes(cmd.Context(), p, args)
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				return fmt.Errorf("entity %q in project %q: %w", args[0], p.Name, models.ErrNotFound)
			}
			return printJSON(cmd.OutOrStdout(), nodes[0])
		},
	}

	var filterType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			entities, err := svc.ListEntities(cmd.Context(), p)
			if err != nil {
				return err
			}
			if filterType != "" {
				entities = slices.DeleteFunc(entities, func(e models.Entity) bool {
					return e.EntityType != filterType
				})
			}
			return printJSON(cmd.OutOrStdout(), entities)
		},
	}
	list.Flags().StringVarP(&filterType, "type", "t", "", "only list entities of this type")

	del := &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete entities and every relation touching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := svc.DeleteEntities(cmd.Context(), p, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entities.\n", len(deleted))
			return nil
		},
	}

	cmd.AddCommand(add, get, list, del)
	return cmd
}
