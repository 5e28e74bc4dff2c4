package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config describes the meter provider readers.
type Config struct {
	ServiceName string
	// Registry receives the Prometheus collector. Nil disables the
	// Prometheus reader.
	Registry *prometheus.Registry
	OTLP     *OTLPConfig
}

// OTLPConfig configures a periodic OTLP/gRPC reader.
type OTLPConfig struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

type OptionFn func(config Config) Config

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

// WithPrometheus exports metrics through registry.
func WithPrometheus(registry *prometheus.Registry) OptionFn {
	return func(config Config) Config {
		config.Registry = registry
		return config
	}
}

// WithOTLP pushes metrics to an OTLP collector.
func WithOTLP(endpoint string, headers map[string]string, insecure bool) OptionFn {
	return func(config Config) Config {
		config.OTLP = &OTLPConfig{Endpoint: endpoint, Headers: headers, Insecure: insecure}
		return config
	}
}
