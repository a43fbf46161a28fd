package errors

import (
	"errors"
	"fmt"
)

// ChecksumMismatchError carries both checksums of a rejected record.
type ChecksumMismatchError struct {
	Computed uint16
	Stored   uint16
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("calculated: %d, stored: %d", e.Computed, e.Stored)
}

// NewChecksumMismatchError wraps the computed and stored values in an AppError.
func NewChecksumMismatchError(computed, stored uint16) *AppError {
	return NewAppError(ErrTypeChecksumMismatch, "license checksum validation failed",
		&ChecksumMismatchError{Computed: computed, Stored: stored}).
		WithContext("computed_checksum", computed).
		WithContext("stored_checksum", stored)
}

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps an error to a process exit status. Argument errors exit
// with ExitUsage, every other failure with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrInvalidArgument) {
		return ExitUsage
	}
	return ExitFailure
}
