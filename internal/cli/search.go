package cli

import (
	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/knowledge"
)

func newSearchCommand(a *app) *cobra.Command {
	var q knowledge.SearchQuery
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Find entities by case-insensitive text, type and tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := a.project(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				q.Text = args[0]
			}
			hits, err := svc.Search(cmd.Context(), p, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hits)
		},
	}
	cmd.Flags().StringSliceVarP(&q.EntityTypes, "type", "t", nil, "only match these entity types")
	cmd.Flags().StringSliceVar(&q.Tags, "tag", nil, "only match entities carrying all of these tags")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "maximum number of results (0 for all)")
	return cmd
}
