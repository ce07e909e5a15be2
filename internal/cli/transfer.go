package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/knowledge"
)

func newExportCommand(a *app) *cobra.Command {
	var (
		output string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current project, or every project, as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var names []string
			if !all {
				names = []string{a.cfg.DefaultProject}
			}
			doc, err := svc.ExportProjects(cmd.Context(), names...)
			if err != nil {
				return err
			}
			if output == "" {
				return printJSON(cmd.OutOrStdout(), doc)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := printJSON(f, doc); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info("exported projects", "file", output, "projects", len(doc.Projects))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&all, "all", false, "export every project")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var (
		target string
		merge  bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import projects from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var doc knowledge.Export
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.ImportProjects(cmd.Context(), &doc, target, merge)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "import every project into this project")
	cmd.Flags().BoolVar(&merge, "merge", false, "add to projects that already hold entities")
	return cmd
}
