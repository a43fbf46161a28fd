package license

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "usblicense/license"
	MeterName  = "usblicense/license"
)

// Operation names a license record operation
type Operation string

const (
	OpInspect    Operation = "inspect"
	OpInitialize Operation = "initialize"
	OpDecrement  Operation = "decrement"
	OpDump       Operation = "dump"
)

// LicenseMetrics holds the license OpenTelemetry instruments
type LicenseMetrics struct {
	Operations         metric.Int64Counter
	Failures           metric.Int64Counter
	ChecksumMismatches metric.Int64Counter
	OperationDuration  metric.Float64Histogram
	CountObserved      metric.Int64Gauge
}

// InitializeLicenseMetrics creates all license-specific metrics
func InitializeLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	metrics := &LicenseMetrics{}

	var err error

	metrics.Operations, err = meter.Int64Counter(
		"license_operations_total",
		metric.WithDescription("Total number of license record operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	metrics.Failures, err = meter.Int64Counter(
		"license_operation_failures_total",
		metric.WithDescription("Total number of failed license record operations by error type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	metrics.ChecksumMismatches, err = meter.Int64Counter(
		"license_checksum_mismatches_total",
		metric.WithDescription("Total number of records rejected for checksum mismatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checksum mismatch counter: %w", err)
	}

	metrics.OperationDuration, err = meter.Float64Histogram(
		"license_operation_duration_seconds",
		metric.WithDescription("License record operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	metrics.CountObserved, err = meter.Int64Gauge(
		"license_count_observed",
		metric.WithDescription("License count read or written by the last successful operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create license count gauge: %w", err)
	}

	return metrics, nil
}
