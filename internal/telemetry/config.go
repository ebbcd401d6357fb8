package telemetry

// Config describes what Setup starts. The zero value starts nothing.
type Config struct {
	// Service names the process in traces and profiles
	Service string

	// Version tags spans and profiles so releases can be compared
	Version string

	Tracing   TracingConfig
	Profiling ProfilingConfig
}

// TracingConfig controls the OTLP span exporter.
type TracingConfig struct {
	Enabled bool

	// Endpoint is the collector address, host:port
	Endpoint string

	// Insecure dials the collector without TLS
	Insecure bool

	// SampleRate is the fraction of sessions traced. Command spans follow
	// their session's decision.
	SampleRate float64
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool

	// Endpoint is the Pyroscope server URL
	Endpoint string

	// ProfileTypes names the profiles to push, see profileTypes
	ProfileTypes []string
}

// DefaultConfig returns a configuration with both exporters off.
func DefaultConfig() Config {
	return Config{
		Service: "filedeck",
		Version: "dev",
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
		},
		Profiling: ProfilingConfig{
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "inuse_space", "goroutines"},
		},
	}
}
