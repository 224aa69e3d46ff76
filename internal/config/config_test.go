package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piwebhook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, EnvSandbox, cfg.Issuer.Environment)
	assert.Equal(t, DefaultIssuerTimeout, cfg.Issuer.Timeout)
	assert.Equal(t, DefaultAuditLog, cfg.Storage.AuditLog)
	assert.Equal(t, DefaultReceiptLog, cfg.Storage.ReceiptLog)
	assert.Equal(t, SandboxBaseURL, cfg.Issuer.IssuerBaseURL())
	assert.NoError(t, Validate(cfg))
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  write_timeout: 20s
issuer:
  api_key: k-123
  environment: production
  timeout: 5s
storage:
  audit_log: /var/log/audit.log
  receipt_log: /var/log/receipts.log
catalog:
  path: products.yaml
  watch: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 20*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "k-123", cfg.Issuer.APIKey)
	assert.Equal(t, EnvProduction, cfg.Issuer.Environment)
	assert.Equal(t, 5*time.Second, cfg.Issuer.Timeout)
	assert.Equal(t, ProductionBaseURL, cfg.Issuer.IssuerBaseURL())
	assert.Equal(t, "/var/log/audit.log", cfg.Storage.AuditLog)
	assert.True(t, cfg.Catalog.Watch)
	assert.NoError(t, Validate(cfg))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "issuer:\n  api_key: from-file\n  timeout: 5s\n")
	t.Setenv("PIWEBHOOK_API_KEY", "from-env")
	t.Setenv("PIWEBHOOK_ISSUER_TIMEOUT", "2s")
	t.Setenv("PIWEBHOOK_ISSUER_BASE_URL", "http://127.0.0.1:9999/v2")
	t.Setenv("PIWEBHOOK_CATALOG_WATCH", "false")
	t.Setenv("PIWEBHOOK_TRACING_ENABLED", "true")
	t.Setenv("PIWEBHOOK_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Issuer.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Issuer.Timeout)
	assert.Equal(t, "http://127.0.0.1:9999/v2", cfg.Issuer.IssuerBaseURL())
	assert.False(t, cfg.Catalog.Watch)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, ExporterOTLPHTTP, cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "server: [unclosed"))
	assert.Error(t, err)

	t.Setenv("PIWEBHOOK_ISSUER_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "PIWEBHOOK_ISSUER_TIMEOUT")
}

func TestApplyEnvBadBool(t *testing.T) {
	var cfg Config
	err := applyEnv(&cfg, func(k string) string {
		if k == "PIWEBHOOK_CATALOG_WATCH" {
			return "maybe"
		}
		return ""
	})
	assert.ErrorContains(t, err, "PIWEBHOOK_CATALOG_WATCH")
}

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Issuer.APIKey = "key"
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid sandbox", func(*Config) {}, ""},
		{"sandbox without key only warns", func(c *Config) { c.Issuer.APIKey = "" }, ""},
		{"unknown environment", func(c *Config) { c.Issuer.Environment = "staging" }, "issuer.environment"},
		{"production needs key", func(c *Config) {
			c.Issuer.Environment = EnvProduction
			c.Issuer.APIKey = ""
		}, "issuer.api_key is required"},
		{"production needs https", func(c *Config) {
			c.Issuer.Environment = EnvProduction
			c.Issuer.BaseURL = "http://api.example.com/v2"
		}, "https"},
		{"relative base url", func(c *Config) { c.Issuer.BaseURL = "/v2" }, "absolute URL"},
		{"zero timeout", func(c *Config) { c.Issuer.Timeout = 0 }, "issuer.timeout"},
		{"write timeout too short", func(c *Config) { c.Server.WriteTimeout = c.Issuer.Timeout }, "server.write_timeout"},
		{"same log files", func(c *Config) { c.Storage.ReceiptLog = "./" + c.Storage.AuditLog }, "different files"},
		{"watch without path", func(c *Config) { c.Catalog.Watch = true }, "catalog.watch"},
		{"tracing off ignores exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, ""},
		{"tracing unknown exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "zipkin"
		}, "tracing.exporter"},
		{"tracing sampling above one", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SamplingRate = 1.5
		}, "tracing.sampling_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Issuer.Environment = "staging"
	cfg.Storage.AuditLog = ""
	cfg.Storage.ReceiptLog = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer.environment")
	assert.Contains(t, err.Error(), "storage.audit_log is required")
	assert.Contains(t, err.Error(), "storage.receipt_log is required")
}
