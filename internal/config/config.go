package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "usblicense/internal/errors"
)

const (
	// EnvPrefix namespaces every environment variable, e.g. USBLICENSE_LOGGING_LEVEL.
	EnvPrefix = "USBLICENSE"
	// ConfigFileEnv names the variable holding the optional YAML config path.
	ConfigFileEnv = EnvPrefix + "_CONFIG"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Device    DeviceConfig    `yaml:"device" envconfig:"DEVICE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both none"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_if=Output file,required_if=Output both"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"DEPLOYMENT_ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout stderr"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=none prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	// TextfilePath receives the Prometheus exposition at exit, for the
	// node_exporter textfile collector. Requires MetricExporter=prometheus.
	TextfilePath string `yaml:"textfile_path" envconfig:"TEXTFILE_PATH" validate:"omitempty,endswith=.prom"`
}

// DeviceConfig contains device defaults
type DeviceConfig struct {
	// Path is used when no device is given on the command line.
	Path string `yaml:"path" envconfig:"DEFAULT_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:    "warn",
			Format:   "text",
			Output:   "console",
			FilePath: "usblicense.log",
		},
		Telemetry: TelemetryConfig{
			Environment:    "production",
			TraceExporter:  "none",
			MetricExporter: "none",
			SampleRatio:    1.0,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $USBLICENSE_CONFIG when path is empty), then environment variables.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.Telemetry.TextfilePath != "" && c.Telemetry.MetricExporter != "prometheus" {
			return apperrors.NewConfigError("config validation failed",
				errors.New("telemetry.textfile_path requires telemetry.metric_exporter=prometheus"))
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return apperrors.NewConfigError("config validation failed", errors.New(strings.Join(msgs, "; ")))
}
