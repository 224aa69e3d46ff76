package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate checks the config for:
//   - a known issuer environment and a usable base URL
//   - an API key when talking to production
//   - a finite verification timeout that fits inside the write timeout
//   - distinct audit and receipt files
//   - a supported exporter and sampling rate when tracing is on
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Issuer.Environment {
	case EnvSandbox, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("issuer.environment must be %q or %q, got %q", EnvSandbox, EnvProduction, cfg.Issuer.Environment))
	}
	if cfg.Issuer.APIKey == "" {
		if cfg.Issuer.Environment == EnvProduction {
			errs = append(errs, "issuer.api_key is required in production")
		} else {
			slog.Warn("issuer.api_key is empty; verification calls will be rejected by the issuer")
		}
	}
	if u, err := url.Parse(cfg.Issuer.IssuerBaseURL()); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("issuer.base_url %q is not an absolute URL", cfg.Issuer.IssuerBaseURL()))
	} else if cfg.Issuer.Environment == EnvProduction && u.Scheme != "https" {
		errs = append(errs, "issuer.base_url must use https in production")
	}
	if cfg.Issuer.Timeout <= 0 {
		errs = append(errs, "issuer.timeout must be positive")
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Issuer.Timeout {
		errs = append(errs, "server.write_timeout must exceed issuer.timeout so verification failures can be reported")
	}
	if cfg.Storage.AuditLog == "" {
		errs = append(errs, "storage.audit_log is required")
	}
	if cfg.Storage.ReceiptLog == "" {
		errs = append(errs, "storage.receipt_log is required")
	}
	if cfg.Storage.AuditLog != "" && filepath.Clean(cfg.Storage.AuditLog) == filepath.Clean(cfg.Storage.ReceiptLog) {
		errs = append(errs, "storage.audit_log and storage.receipt_log must be different files")
	}
	if cfg.Catalog.Watch && cfg.Catalog.Path == "" {
		errs = append(errs, "catalog.watch requires catalog.path")
	}
	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case ExporterOTLPHTTP, ExporterOTLPGRPC:
		default:
			errs = append(errs, fmt.Sprintf("tracing.exporter must be %q or %q, got %q", ExporterOTLPHTTP, ExporterOTLPGRPC, cfg.Tracing.Exporter))
		}
		if cfg.Tracing.SamplingRate <= 0 || cfg.Tracing.SamplingRate > 1 {
			errs = append(errs, fmt.Sprintf("tracing.sampling_rate must be in (0, 1], got %g", cfg.Tracing.SamplingRate))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
