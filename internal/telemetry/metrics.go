package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/scriptpack"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Dev server metrics
	FontRunsTotal      metric.Int64Counter
	FontFailuresTotal  metric.Int64Counter
	ProxyRequestsTotal metric.Int64Counter
	ProxyRetriesTotal  metric.Int64Counter
	RejectedHostsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// ProfileAttributes tags a measurement with the build profile name.
func ProfileAttributes(profile string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("profile", profile))
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"scriptpack.builds.total",
		metric.WithDescription("Total number of builds run"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"scriptpack.builds.errors.total",
		metric.WithDescription("Total number of builds that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"scriptpack.builds.duration",
		metric.WithDescription("Duration of builds"),
		metric.WithUnit("ms"),
	)

	m.FontRunsTotal, _ = meter.Int64Counter(
		"scriptpack.devserver.font_runs.total",
		metric.WithDescription("Total number of font regeneration runs"),
		metric.WithUnit("{run}"),
	)

	m.FontFailuresTotal, _ = meter.Int64Counter(
		"scriptpack.devserver.font_failures.total",
		metric.WithDescription("Total number of font regeneration runs that exited non-zero"),
		metric.WithUnit("{run}"),
	)

	m.ProxyRequestsTotal, _ = meter.Int64Counter(
		"scriptpack.devserver.proxy_requests.total",
		metric.WithDescription("Total number of requests proxied to the CDN"),
		metric.WithUnit("{request}"),
	)

	m.ProxyRetriesTotal, _ = meter.Int64Counter(
		"scriptpack.devserver.proxy_retries.total",
		metric.WithDescription("Total number of retried upstream requests"),
		metric.WithUnit("{retry}"),
	)

	m.RejectedHostsTotal, _ = meter.Int64Counter(
		"scriptpack.devserver.rejected_hosts.total",
		metric.WithDescription("Total number of requests rejected for their Host header"),
		metric.WithUnit("{request}"),
	)

	return m
}
