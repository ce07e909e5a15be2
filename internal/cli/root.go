// Package cli implements the parsnip command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omar16100/parsnip/internal/config"
	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/logging"
	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/backends"
)

// app carries state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg    *config.Config
	logger *slog.Logger
	reg    *prometheus.Registry

	store *storage.Instrumented
	svc   *knowledge.Service
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	root, a := newRootCommand()
	defer a.close()
	return root.ExecuteContext(ctx)
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "parsnip",
		Short:        "Project-scoped knowledge graph memory for AI assistants",
		Long:         longRoot,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.String("backend", "", "storage backend: badger, sqlite or memory (default sqlite)")
	pf.String("data-dir", "", "data directory (default $HOME/.parsnip)")
	pf.StringP("project", "p", "", `project namespace (default "default")`)
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text, json or logfmt")
	for key, flag := range map[string]string{
		"storage.backend":  "backend",
		"storage.data_dir": "data-dir",
		"default_project":  "project",
		"log.level":        "log-level",
		"log.format":       "log-format",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newServeCommand(a),
		newProjectCommand(a),
		newEntityCommand(a),
		newRelationCommand(a),
		newSearchCommand(a),
		newTraverseCommand(a),
		newPathCommand(a),
		newExportCommand(a),
		newImportCommand(a),
	)
	return root, a
}

// load resolves configuration and builds the logger. Storage opens lazily.
func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// service opens the configured backend on first use.
func (a *app) service(ctx context.Context) (*knowledge.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	store, err := backends.Open(ctx, a.cfg.Storage, a.logger, a.reg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store
	a.svc = knowledge.New(store, a.logger)
	return a.svc, nil
}

// project returns the service together with the configured project,
// creating the project on first reference.
func (a *app) project(ctx context.Context) (*knowledge.Service, *models.Project, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, nil, err
	}
	p, err := svc.GetOrCreateProject(ctx, a.cfg.DefaultProject)
	if err != nil {
		return nil, nil, err
	}
	return svc, p, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.svc = nil, nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const longRoot = `
parsnip stores entities, observations and typed relations in isolated project
namespaces, and answers neighbourhood and shortest-path queries over them.

Run "parsnip serve" to expose the graph to MCP clients, or use the project,
entity, relation, search, traverse and path commands directly. Projects move
between stores with "parsnip export" and "parsnip import".
`
