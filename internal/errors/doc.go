// Package errors defines the application error type used across usblicense.
//
// Every failure surfaced by the license operations is an *AppError whose
// Type names the error kind:
//
//	DEVICE_OPEN         device path missing, unreadable or too small
//	READ                short or failed read of the license block
//	WRITE               short or failed write, or failed flush
//	CHECKSUM_MISMATCH   stored checksum differs from the computed one
//	LICENSES_EXHAUSTED  decrement attempted on a zero count
//	INVALID_ARGUMENT    caller input rejected before any I/O
//	CONFIG              configuration could not be loaded
//
// Each kind has a sentinel so callers can match with errors.Is:
//
//	if errors.Is(err, apperrors.ErrLicensesExhausted) { ... }
//
// Checksum failures also carry a *ChecksumMismatchError with both values,
// reachable through errors.As. ExitCode maps any error to a process status.
package errors
