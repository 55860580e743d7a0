package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Scrape is a pull-based metrics pipeline: instruments created from
// Provider are rendered by Handler together with Go runtime and process
// collectors. Each Scrape owns its registry, so several can coexist.
type Scrape struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler
}

// NewScrape builds a Scrape whose target_info carries id.
func NewScrape(ctx context.Context, id Identity) (*Scrape, error) {
	registry := prometheus.NewRegistry()

	err := registry.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res, err := id.Resource(ctx)
	if err != nil {
		return nil, err
	}

	return &Scrape{
		Provider: newSDKMeterProvider(res, exporter),
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, nil
}

// Meter returns the tracecov meter of the scrape provider.
func (s *Scrape) Meter() metric.Meter { return s.Provider.Meter(instrumentationName) }

// Shutdown stops the provider; the handler keeps serving runtime collectors.
func (s *Scrape) Shutdown(ctx context.Context) error {
	err := s.Provider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown prometheus provider: %w", err)
	}

	return nil
}
