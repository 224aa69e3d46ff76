package config

import "time"

// Issuer environments.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// Config is the top-level service configuration. It is built once at startup and
// passed to each component's constructor.
type Config struct {
	Server  ServerConf  `koanf:"server"`
	Issuer  IssuerConf  `koanf:"issuer"`
	Storage StorageConf `koanf:"storage"`
	Catalog CatalogConf `koanf:"catalog"`
	Tracing TracingConf `koanf:"tracing"`
}

// ServerConf holds HTTP listener and process logging settings.
type ServerConf struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogLevel        string        `koanf:"log_level"`  // debug, info, warn, error
	LogFormat       string        `koanf:"log_format"` // text or json
}

// IssuerConf describes the payment network's verification API.
type IssuerConf struct {
	AppID       string        `koanf:"app_id"`
	APIKey      string        `koanf:"api_key"`
	Environment string        `koanf:"environment"` // sandbox or production
	BaseURL     string        `koanf:"base_url"`    // overrides the environment's host
	Timeout     time.Duration `koanf:"timeout"`
}

// StorageConf names the append-only files.
type StorageConf struct {
	AuditLog   string `koanf:"audit_log"`
	ReceiptLog string `koanf:"receipt_log"`
}

// CatalogConf locates the product catalog.
type CatalogConf struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// TracingConf controls OpenTelemetry export. With Enabled false the global no-op
// provider stays installed and spans cost nothing.
type TracingConf struct {
	Enabled      bool    `koanf:"enabled"`
	Exporter     string  `koanf:"exporter"`      // otlp-http or otlp-grpc
	Endpoint     string  `koanf:"endpoint"`      // host:port of the collector
	SamplingRate float64 `koanf:"sampling_rate"` // 0 < rate <= 1; unset means 1
	Insecure     bool    `koanf:"insecure"`
}

// Trace exporters.
const (
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Issuer API hosts per environment.
const (
	SandboxBaseURL    = "https://api.testnet.minepi.com/v2"
	ProductionBaseURL = "https://api.minepi.com/v2"
)

// IssuerBaseURL returns the configured override, or the host for the environment.
func (c IssuerConf) IssuerBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == EnvProduction {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}
