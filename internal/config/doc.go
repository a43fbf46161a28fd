// Package config provides configuration loading for usblicense.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern USBLICENSE_* for namespacing:
//
//	USBLICENSE_CONFIG=/etc/usblicense.yaml
//	USBLICENSE_LOGGING_LEVEL=debug
//	USBLICENSE_LOGGING_OUTPUT=both
//	USBLICENSE_TELEMETRY_METRIC_EXPORTER=prometheus
//	USBLICENSE_TELEMETRY_TEXTFILE_PATH=/var/lib/node_exporter/usblicense.prom
//	USBLICENSE_DEVICE_DEFAULT_PATH=/dev/sdb
//
// # Configuration File
//
//	logging:
//	  level: info
//	  format: json
//	telemetry:
//	  trace_exporter: stderr
//	device:
//	  path: /dev/sdb
//
// Unknown keys in the file are rejected.
//
// # Validation
//
// Values are checked with go-playground/validator struct tags at load time.
// Failures are returned as CONFIG application errors.
//
// # Testing
//
// Default returns the built-in configuration without reading the
// environment or any file.
package config
