package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project namespaces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects with entity and relation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := svc.SummarizeProjects(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summaries)
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.CreateProject(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "project description")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project with all its entities and relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %q deleted.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}
