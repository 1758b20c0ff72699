package telemetry

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the OTLP trace exporter. Telemetry stays off unless an
// endpoint is configured, either in the settings file or via environment.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	DialTimeout time.Duration
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads WSTERM_OTLP_* variables so tracing can be switched on
// without touching the settings file.
func ConfigFromEnv(serviceName, version string) Config {
	cfg := Config{
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    strings.TrimSpace(os.Getenv("WSTERM_OTLP_ENDPOINT")),
	}
	if v, err := strconv.ParseBool(os.Getenv("WSTERM_OTLP_INSECURE")); err == nil {
		cfg.Insecure = v
	}
	if raw := strings.TrimSpace(os.Getenv("WSTERM_OTLP_HEADERS")); raw != "" {
		cfg.Headers = parseHeaderList(raw)
	}
	return cfg
}

// parseHeaderList splits "key=value,key2=value2" into a map, dropping
// malformed entries.
func parseHeaderList(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" {
			continue
		}
		headers[key] = value
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
