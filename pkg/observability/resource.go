package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const attrAppMode = "app.mode"

// Resource describes the process to exporters. Empty identity fields are
// left out rather than exported as empty strings.
func (id Identity) Resource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(id.Service)}

	if id.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(id.Version))
	}

	if id.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(id.Environment))
	}

	if id.Mode != "" {
		attrs = append(attrs, attribute.String(attrAppMode, string(id.Mode)))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}
