// Package observe provides the daemon's OpenTelemetry metrics, bridged to
// Prometheus for scraping.
package observe

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
)

// Module provides the meter provider, the Prometheus bridge and Metrics.
var Module = fx.Module("observe",
	fx.Provide(
		newLifecycleProvider,
		func(p *Provider) metric.MeterProvider { return p.MeterProvider() },
		NewMetrics,
	),
)
