// Package license manages the license record stored at the end of a USB
// device.
//
// # Architecture Overview
//
// The package sits on top of two lower layers:
//
//	- record: pure codec for the 512-byte block and its checksum
//	- device: opens a device, locates the block at size-512 and moves it
//
// Manager composes them into the three record operations plus a raw dump.
// Every operation acquires its own device handle and releases it before
// returning, on success and on error.
//
// # Operations
//
//	count, err := manager.Inspect(ctx, "/dev/sdb")      // check
//	err = manager.Initialize(ctx, "/dev/sdb", 5)        // create
//	count, err = manager.Decrement(ctx, "/dev/sdb")     // consume one
//
// Inspect returns zero without checksum validation when the count is zero.
// Otherwise a checksum mismatch fails with CHECKSUM_MISMATCH.
//
// Initialize never reads the slot; it overwrites it with a new block.
//
// Decrement reads the block, refuses a zero count with LICENSES_EXHAUSTED
// and writes a new block with count-1. It trusts the stored count and does
// not validate the prior checksum, matching the legacy tool; a mismatch is
// only logged at warn level.
//
// # Filler
//
// Bytes outside the record fields are regenerated on every write from the
// Filler passed with WithFiller. Tests inject a seeded or zero filler.
//
// # Observability
//
// Each operation runs in a span named license.<operation>, logs its outcome
// through slog with the trace_id of the context, and updates the metrics in
// LicenseMetrics.
package license
