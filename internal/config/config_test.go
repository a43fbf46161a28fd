package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "usblicense/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usblicense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "none", cfg.Telemetry.MetricExporter)
	assert.Empty(t, cfg.Device.Path)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
telemetry:
  metric_exporter: prometheus
  textfile_path: /tmp/usblicense.prom
device:
  path: /dev/sdb
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output, "keys absent from the file keep defaults")
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
	assert.Equal(t, "/tmp/usblicense.prom", cfg.Telemetry.TextfilePath)
	assert.Equal(t, "/dev/sdb", cfg.Device.Path)
}

func TestLoad_FileFromEnv(t *testing.T) {
	path := writeConfigFile(t, "device:\n  path: /dev/sdc\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdc", cfg.Device.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: debug\ndevice:\n  path: /dev/sdb\n")
	t.Setenv("USBLICENSE_LOGGING_LEVEL", "error")
	t.Setenv("USBLICENSE_DEVICE_DEFAULT_PATH", "/dev/sdd")
	t.Setenv("USBLICENSE_TELEMETRY_SAMPLE_RATIO", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/dev/sdd", cfg.Device.Path)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "unknown key", file: "logging:\n  colour: red\n"},
		{name: "malformed yaml", file: "logging: [\n"},
		{name: "bad level", env: map[string]string{"USBLICENSE_LOGGING_LEVEL": "loud"}},
		{name: "bad output", env: map[string]string{"USBLICENSE_LOGGING_OUTPUT": "syslog"}},
		{name: "bad trace exporter", env: map[string]string{"USBLICENSE_TELEMETRY_TRACE_EXPORTER": "otlp"}},
		{name: "sample ratio out of range", env: map[string]string{"USBLICENSE_TELEMETRY_SAMPLE_RATIO": "2"}},
		{name: "unparseable ratio", env: map[string]string{"USBLICENSE_TELEMETRY_SAMPLE_RATIO": "half"}},
		{name: "textfile without prometheus", env: map[string]string{"USBLICENSE_TELEMETRY_TEXTFILE_PATH": "/tmp/x.prom"}},
		{name: "textfile wrong extension", env: map[string]string{
			"USBLICENSE_TELEMETRY_METRIC_EXPORTER": "prometheus",
			"USBLICENSE_TELEMETRY_TEXTFILE_PATH":   "/tmp/x.txt",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigFileEnv, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			switch {
			case tt.missing:
				path = filepath.Join(t.TempDir(), "absent.yaml")
			case tt.file != "":
				path = writeConfigFile(t, tt.file)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConfig)
		})
	}
}

func TestValidate_FilePathRequiredForFileOutput(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""
	assert.ErrorIs(t, cfg.Validate(), apperrors.ErrConfig)

	cfg.Logging.FilePath = "out.log"
	assert.NoError(t, cfg.Validate())
}
