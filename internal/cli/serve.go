package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/omar16100/parsnip/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			srv := server.New(svc, a.cfg.DefaultProject)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch a.cfg.Server.Transport {
			case "http":
				a.logger.Info("MCP server listening", "addr", a.cfg.Server.Addr, "backend", a.cfg.Storage.Backend)
				return serveHTTP(ctx, a.cfg.Server.Addr, newHTTPHandler(srv, a.reg), a.logger)
			default:
				a.logger.Info("MCP server starting", "transport", "stdio", "backend", a.cfg.Storage.Backend)
				err := srv.Run(ctx, &mcp.StdioTransport{})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		},
	}

	f := cmd.Flags()
	f.String("transport", "", "transport: stdio or http (default stdio)")
	f.String("addr", "", "listen address for the http transport (default :8081)")
	_ = a.v.BindPFlag("server.transport", f.Lookup("transport"))
	_ = a.v.BindPFlag("server.addr", f.Lookup("addr"))
	return cmd
}

// newHTTPHandler serves MCP on / and Prometheus metrics on /metrics.
func newHTTPHandler(srv *mcp.Server, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil))
	return mux
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
