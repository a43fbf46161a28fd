package license

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"usblicense/internal/device"
	apperrors "usblicense/internal/errors"
	"usblicense/internal/infrastructure"
	"usblicense/internal/record"
)

// MaxCount is the largest count the record can hold.
const MaxCount = math.MaxUint16

// Manager reads, validates and rewrites the license record on a device.
// Each call opens and closes its own device handle.
type Manager struct {
	opener  device.Opener
	filler  record.Filler
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *LicenseMetrics
}

// Option configures a Manager
type Option func(*Manager)

// WithOpener replaces the default file opener.
func WithOpener(opener device.Opener) Option {
	return func(m *Manager) { m.opener = opener }
}

// WithFiller sets the source of filler bytes used on every write.
func WithFiller(filler record.Filler) Option {
	return func(m *Manager) { m.filler = filler }
}

// WithLogger sets the logger. The component attribute is added by NewManager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) { m.tracer = tracer }
}

// WithMetrics sets the metric instruments.
func WithMetrics(metrics *LicenseMetrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a license manager. Unset options fall back to the
// file opener, a time-seeded random filler, the infrastructure logger and
// the global OpenTelemetry providers.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}

	if m.opener == nil {
		m.opener = device.OpenFile
	}
	if m.filler == nil {
		m.filler = record.NewRandomFiller(nil)
	}
	if m.logger == nil {
		m.logger = infrastructure.GetLogger()
	}
	m.logger = infrastructure.WithComponent(m.logger, "license_manager")
	if m.tracer == nil {
		m.tracer = otel.Tracer(TracerName)
	}
	if m.metrics == nil {
		metrics, err := InitializeLicenseMetrics(otel.Meter(MeterName))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize license metrics: %w", err)
		}
		m.metrics = metrics
	}

	return m, nil
}

// Inspect returns the license count stored on the device. A zero count is
// returned without checksum validation.
func (m *Manager) Inspect(ctx context.Context, path string) (count uint16, err error) {
	ctx, finish := m.startOperation(ctx, OpInspect, path)
	defer func() { finish(count, err) }()

	rec, err := m.readRecord(ctx, path)
	if err != nil {
		return 0, err
	}

	count = rec.Count()
	m.logger.DebugContext(ctx, "Decoded license count",
		slog.String("device", path),
		slog.String("raw_count_bytes", fmt.Sprintf("0x%02X 0x%02X", rec[record.CountOffset], rec[record.CountOffset+1])),
		slog.Int("license_count", int(count)),
	)
	if count == 0 {
		m.logger.InfoContext(ctx, "No licenses found", slog.String("device", path))
		return 0, nil
	}

	if err := m.validate(ctx, path, &rec); err != nil {
		return 0, err
	}
	return count, nil
}

// Initialize writes a fresh record holding count, overwriting whatever
// the slot held before. count must be in 1..MaxCount.
func (m *Manager) Initialize(ctx context.Context, path string, count int) (err error) {
	if count <= 0 {
		return apperrors.NewInvalidArgumentError("license count must be positive").
			WithContext("count", count)
	}
	if count > MaxCount {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("license count must not exceed %d", MaxCount)).
			WithContext("count", count)
	}

	ctx, finish := m.startOperation(ctx, OpInitialize, path)
	defer func() { finish(uint16(count), err) }()

	dev, err := device.Open(m.opener, path, device.ReadWrite)
	if err != nil {
		return err
	}
	defer m.closeDevice(ctx, dev)

	return m.writeRecord(ctx, dev, uint16(count))
}

// Decrement consumes one license and returns the new count. The prior
// checksum is not validated before decrementing.
func (m *Manager) Decrement(ctx context.Context, path string) (count uint16, err error) {
	ctx, finish := m.startOperation(ctx, OpDecrement, path)
	defer func() { finish(count, err) }()

	dev, err := device.Open(m.opener, path, device.ReadWrite)
	if err != nil {
		return 0, err
	}
	defer m.closeDevice(ctx, dev)

	rec, err := dev.ReadRecord()
	if err != nil {
		return 0, err
	}

	current := rec.Count()
	if current == 0 {
		return 0, apperrors.NewLicensesExhaustedError().WithContext("device", path)
	}
	if !rec.Valid() {
		m.logger.WarnContext(ctx, "Decrementing record with invalid checksum",
			slog.String("device", path),
			slog.Int("computed_checksum", int(rec.ComputedChecksum())),
			slog.Int("stored_checksum", int(rec.StoredChecksum())),
		)
	}

	count = current - 1
	if err := m.writeRecord(ctx, dev, count); err != nil {
		return 0, err
	}
	return count, nil
}

// Dump decodes the record fields without validating them.
func (m *Manager) Dump(ctx context.Context, path string) (fields record.Fields, err error) {
	ctx, finish := m.startOperation(ctx, OpDump, path)
	defer func() { finish(fields.Count, err) }()

	rec, err := m.readRecord(ctx, path)
	if err != nil {
		return record.Fields{}, err
	}
	return rec.Fields(), nil
}

func (m *Manager) readRecord(ctx context.Context, path string) (record.Record, error) {
	dev, err := device.Open(m.opener, path, device.ReadOnly)
	if err != nil {
		return record.Record{}, err
	}
	defer m.closeDevice(ctx, dev)

	return dev.ReadRecord()
}

func (m *Manager) validate(ctx context.Context, path string, rec *record.Record) error {
	computed := rec.ComputedChecksum()
	stored := rec.StoredChecksum()

	m.logger.DebugContext(ctx, "Checksum computed",
		slog.String("device", path),
		slog.Int("checksum_count", int(record.FieldSum(rec.CountBytes()))),
		slog.Int("checksum_aux_a", int(record.FieldSum(rec.AuxA()))),
		slog.Int("checksum_aux_b", int(record.FieldSum(rec.AuxB()))),
		slog.Int("computed_checksum", int(computed)),
		slog.Int("stored_checksum", int(stored)),
	)

	if computed != stored {
		m.metrics.ChecksumMismatches.Add(ctx, 1)
		return apperrors.NewChecksumMismatchError(computed, stored).WithContext("device", path)
	}
	return nil
}

func (m *Manager) writeRecord(ctx context.Context, dev *device.Device, count uint16) error {
	rec, err := record.Encode(count, m.filler)
	if err != nil {
		return apperrors.NewWriteError("could not build license block", err).
			WithContext("device", dev.Path())
	}

	m.logger.DebugContext(ctx, "Writing license block",
		slog.String("device", dev.Path()),
		slog.Int("license_count", int(count)),
		slog.Int("checksum", int(rec.StoredChecksum())),
	)

	return dev.WriteRecord(&rec)
}

func (m *Manager) closeDevice(ctx context.Context, dev *device.Device) {
	if err := dev.Close(); err != nil {
		m.logger.WarnContext(ctx, "Failed to close device",
			slog.String("device", dev.Path()),
			slog.String("error", err.Error()),
		)
	}
}

// startOperation opens a span and returns a func that ends it, records
// metrics and logs the outcome.
func (m *Manager) startOperation(ctx context.Context, op Operation, path string) (context.Context, func(uint16, error)) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := m.tracer.Start(ctx, "license."+string(op),
		trace.WithAttributes(
			attribute.String("license.operation", string(op)),
			attribute.String("license.device", path),
		),
	)
	start := time.Now()

	m.logger.DebugContext(ctx, "License operation started",
		slog.String("operation", string(op)),
		slog.String("device", path),
	)

	return ctx, func(count uint16, err error) {
		defer span.End()
		m.logOperation(ctx, op, path, start, count, err)
	}
}
