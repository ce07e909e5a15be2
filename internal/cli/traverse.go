package cli

import (
	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/traversal"
)

// queryFlags are shared by traverse and path.
type queryFlags struct {
	depth         int
	direction     string
	entityTypes   []string
	relationTypes []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.depth, "depth", "d", traversal.DefaultMaxDepth, "maximum depth in hops")
	cmd.Flags().StringVar(&f.direction, "direction", "both", "edge direction: outgoing, incoming or both")
	cmd.Flags().StringSliceVar(&f.entityTypes, "entity-type", nil, "only step onto entities of these types")
	cmd.Flags().StringSliceVar(&f.relationTypes, "relation-type", nil, "only follow relations of these types")
}

func (f *queryFlags) query(start string) (*traversal.Query, error) {
	dir, err := models.ParseDirection(f.direction)
	if err != nil {
		return nil, err
	}
	return traversal.NewQuery(start).
		WithDepth(f.depth).
		WithDirection(dir).
		FilterEntityTypes(f.entityTypes...).
		FilterRelationTypes(f.relationTypes...), nil
}

func newTraverseCommand(a *app) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "traverse <start>",
		Short: "Explore the neighbourhood of an entity breadth-first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(args[0])
			if err != nil {
				return err
			}
			return a.runQuery(cmd, q)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPathCommand(a *app) *cobra.Command {
	var (
		flags    queryFlags
		weighted bool
	)
	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the shortest path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(args[0])
			if err != nil {
				return err
			}
			q.FindPathTo(args[1])
			if weighted {
				q.Weighted()
			}
			return a.runQuery(cmd, q)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&weighted, "weighted", "w", false, "minimise total relation weight instead of hop count")
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, q *traversal.Query) error {
	svc, p, err := a.project(cmd.Context())
	if err != nil {
		return err
	}
	res, err := svc.Traverse(cmd.Context(), p, q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
