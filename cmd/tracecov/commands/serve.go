package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
)

const (
	serverReadTimeout     = 30 * time.Second
	serverWriteTimeout    = 60 * time.Second
	serverIdleTimeout     = 120 * time.Second
	serverShutdownTimeout = 10 * time.Second
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		tf   traceFlags
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve [trace-file|-]",
		Short: "Serve a coverage report over HTTP",
		Long: `Ingest a trace once and serve the result:

  /             HTML report with charts and annotated sources
  /report.json  JSON report
  /metrics      Prometheus metrics of the server and the ingestion`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tf.apply(cmd, cfg)

			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}

			err = cfg.Validate()
			if err != nil {
				return err
			}

			path := stdinArg
			if len(args) > 0 {
				path = args[0]
			}

			return runServe(cmd, cfg, path)
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", config.DefaultServeAddr, "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, path string) error {
	ocfg, err := observabilityConfig(cmd, cfg, observability.ModeServe)
	if err != nil {
		return err
	}

	providers, err := observability.Init(ocfg)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	scrape, err := observability.NewScrape(cmd.Context(), ocfg.Identity)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := scrape.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("metrics shutdown failed", "error", shutdownErr)
		}
	}()

	meter := scrape.Meter()

	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return err
	}

	coverageMetrics, err := observability.NewCoverageMetrics(meter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := summarize(ctx, cmd, ingestRequest{
		path: path, cfg: cfg, providers: providers, metrics: coverageMetrics,
	})
	if errors.Is(err, errNoData) {
		reportNoData(cmd)

		return nil
	}

	if err != nil {
		return err
	}

	handler, err := newServeMux(summary, providers.Tracer, red, scrape.Handler)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	providers.Logger.Info("serving coverage report",
		"addr", "http://"+listener.Addr().String(),
		"files", summary.Overall.Files,
	)

	return serveUntilDone(ctx, server, listener)
}

func serveUntilDone(ctx context.Context, server *http.Server, listener net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}

// newServeMux renders the report once and returns the routed handler
// wrapped in tracing and RED metrics middleware.
func newServeMux(summary report.Summary, tracer trace.Tracer, red *observability.REDMetrics,
	metricsHandler http.Handler,
) (http.Handler, error) {
	var htmlBuf, jsonBuf bytes.Buffer

	err := report.WriteHTML(&htmlBuf, summary, report.HTMLOptions{})
	if err != nil {
		return nil, err
	}

	err = report.WriteJSON(&jsonBuf, summary)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", staticHandler(contentTypeHTML, htmlBuf.Bytes()))
	mux.Handle("GET /report.json", staticHandler(contentTypeJSON, jsonBuf.Bytes()))
	mux.Handle("GET /metrics", metricsHandler)

	return observability.HTTPMiddleware(tracer, red, mux), nil
}

func staticHandler(contentType string, body []byte) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", contentType)
		_, _ = rw.Write(body)
	})
}
