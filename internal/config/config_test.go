package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/peterldowns/testy/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "LOG_LEVEL", "PROVIDER", "NASDAQ_API_KEY", "DATABASE_URL", "HTTPS_PROXY", "WARM_CRON"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ProviderYahoo, cfg.Provider.Name)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 3, cfg.Provider.RetryAttempts)
	assert.Equal(t, "", cfg.Warmer.Cron)
	assert.Equal(t, DefaultVariants(), cfg.Variants)
	assert.Equal(t, DefaultSymbols, cfg.Variants[0].Symbols)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
  allowed_origins: ["https://example.com"]
provider:
  name: sharadar
  timeout: 10s
  retry_backoff: 250ms
sharadar:
  api_key: from-file
cache:
  single_flight: true
variants:
  - name: tech
    symbols: [aapl, msft]
    show_volume: true
    chart_library: vega-lite
    default_period: Anual
`)
	t.Setenv("NASDAQ_API_KEY", "from-env")
	t.Setenv("WARM_CRON", "*/15 * * * *")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderSharadar, cfg.Provider.Name)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.RetryBackoff)
	assert.Equal(t, "from-env", cfg.Sharadar.APIKey)
	assert.Equal(t, "*/15 * * * *", cfg.Warmer.Cron)
	assert.True(t, cfg.Cache.SingleFlight)

	assert.Equal(t, 1, len(cfg.Variants))
	v := cfg.Variants[0]
	assert.Equal(t, "tech", v.Name)
	assert.Equal(t, DefaultTitle, v.Title)
	assert.Equal(t, []string{"aapl", "msft"}, v.Symbols)
	assert.Equal(t, dashboard.ChartVegaLite, v.ChartLibrary)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "http"
provider:
  name: warehouse
warmer:
  cron: "every tuesday"
variants:
  - name: main
    symbols: [AAPL]
    default_period: monthly
  - name: main
    symbols: [MSFT]
    chart_library: d3
`)
	cfg, err := Load(path)
	assert.NoError(t, err)

	err = cfg.Validate()
	assert.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"Server.Port",
		"ChartLibrary",
		"warehouse.database_url",
		"warmer.cron",
		`duplicate name "main"`,
		"variants.main.default_period",
	} {
		assert.True(t, strings.Contains(msg, want))
	}
	assert.True(t, errors.Is(err, models.ErrInvalidGranularity))
}
