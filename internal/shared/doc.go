// Package shared holds helpers used across packages. The testutil
// subpackage provides device image fixtures and a capturing slog handler
// for tests; nothing here is imported by production code.
package shared
