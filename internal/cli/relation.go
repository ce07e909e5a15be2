package cli

import (
	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/models"
)

func newRelationCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relation",
		Short: "Manage relations in the current project",
	}

	var (
		weight      float64
		fromProject string
		toProject   string
	)
	add := &cobra.Command{
		Use:   "add <from> <to> <type>",
		Short: "Create or overwrite a directed relation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			in := models.NewRelationInput{
				From:         args[0],
				To:           args[1],
				RelationType: args[2],
				FromProject:  fromProject,
				ToProject:    toProject,
			}
			if cmd.Flags().Changed("weight") {
				in.Weight = &weight
			}
			created, err := svc.CreateRelations(cmd.Context(), p, []models.NewRelationInput{in})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created[0])
		},
	}
	add.Flags().Float64VarP(&weight, "weight", "w", 1.0, "edge weight for weighted path finding")
	add.Flags().StringVar(&fromProject, "from-project", "", "project of the source entity")
	add.Flags().StringVar(&toProject, "to-project", "", "project of the target entity")

	var global bool
	list := &cobra.Command{
		Use:   "list [entity]",
		Short: "List relations of the project, or those touching one entity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				rels, err := svc.RelationsFor(cmd.Context(), p, args[0], global)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rels)
			}
			g, err := svc.ReadGraph(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g.Relations)
		},
	}
	list.Flags().BoolVarP(&global, "global", "g", false, "search every project for relations touching the entity")

	cmd.AddCommand(add, list)
	return cmd
}
