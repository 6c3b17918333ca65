package telemetry

import (
	"fmt"
	"time"
)

// Config bundles the telemetry settings for a stratoctl invocation.
type Config struct {
	// ServiceName identifies this binary in traces and metrics.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the build version.
	ServiceVersion string `yaml:"service_version"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures distributed tracing.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures the Prometheus registry.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output"`
}

// TracingConfig configures the OpenTelemetry tracer.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp", "stdout", or "none".
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64 `yaml:"sampling_rate"`

	// ExportTimeout bounds trace export.
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// Insecure disables TLS on the exporter connection.
	Insecure bool `yaml:"insecure"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`

	// ListenAddress, when non-empty, serves /metrics for long-running
	// invocations such as simulate --watch.
	ListenAddress string `yaml:"listen_address"`
}

// DefaultConfig returns the defaults for an interactive CLI invocation.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "stratoctl",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			Insecure:      true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "stratoctl",
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	validExporters := map[string]bool{"otlp": true, "stdout": true, "none": true}
	if c.Tracing.Enabled && !validExporters[c.Tracing.Exporter] {
		return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0 and 1, got: %f", c.Tracing.SamplingRate)
	}

	return nil
}
