package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults for values the config file and environment leave unset.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 45 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultIssuerTimeout   = 30 * time.Second
	DefaultAuditLog        = "pi_payments.log"
	DefaultReceiptLog      = "deliveries.log"
)

// Load reads the optional YAML file at path, applies PIWEBHOOK_* environment
// overrides and fills defaults. Environment values take precedence over the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PIWEBHOOK_ADDR", &cfg.Server.Addr)
	setString("PIWEBHOOK_LOG_LEVEL", &cfg.Server.LogLevel)
	setString("PIWEBHOOK_LOG_FORMAT", &cfg.Server.LogFormat)
	setString("PIWEBHOOK_APP_ID", &cfg.Issuer.AppID)
	setString("PIWEBHOOK_API_KEY", &cfg.Issuer.APIKey)
	setString("PIWEBHOOK_ENVIRONMENT", &cfg.Issuer.Environment)
	setString("PIWEBHOOK_ISSUER_BASE_URL", &cfg.Issuer.BaseURL)
	setString("PIWEBHOOK_AUDIT_LOG", &cfg.Storage.AuditLog)
	setString("PIWEBHOOK_RECEIPT_LOG", &cfg.Storage.ReceiptLog)
	setString("PIWEBHOOK_CATALOG", &cfg.Catalog.Path)
	setString("PIWEBHOOK_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	if v := getenv("PIWEBHOOK_ISSUER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PIWEBHOOK_ISSUER_TIMEOUT: %w", err)
		}
		cfg.Issuer.Timeout = d
	}
	if v := getenv("PIWEBHOOK_CATALOG_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PIWEBHOOK_CATALOG_WATCH: %w", err)
		}
		cfg.Catalog.Watch = b
	}
	if v := getenv("PIWEBHOOK_TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PIWEBHOOK_TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = b
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = "text"
	}
	if cfg.Issuer.Environment == "" {
		cfg.Issuer.Environment = EnvSandbox
	}
	if cfg.Issuer.Timeout == 0 {
		cfg.Issuer.Timeout = DefaultIssuerTimeout
	}
	if cfg.Storage.AuditLog == "" {
		cfg.Storage.AuditLog = DefaultAuditLog
	}
	if cfg.Storage.ReceiptLog == "" {
		cfg.Storage.ReceiptLog = DefaultReceiptLog
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = ExporterOTLPHTTP
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1
	}
}
