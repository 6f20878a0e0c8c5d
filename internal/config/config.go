// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderYahoo     = "yahoo"
	ProviderSharadar  = "sharadar"
	ProviderWarehouse = "warehouse"
)

// DefaultSymbols is the allow-list of the default dashboard.
var DefaultSymbols = []string{"AAPL", "AMZN", "GOOGL", "MSFT", "NVDA", "META", "TSLA"}

const DefaultTitle = "Stock Market Dashboard"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port           string   `yaml:"port" validate:"required,numeric"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Provider struct {
		Name          string        `yaml:"name" validate:"oneof=yahoo sharadar warehouse"`
		Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
		Proxy         string        `yaml:"proxy" validate:"omitempty,url"`
		RetryAttempts int           `yaml:"retry_attempts" validate:"gte=1,lte=10"`
		RetryBackoff  time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	} `yaml:"provider"`
	Yahoo struct {
		BaseURL    string `yaml:"base_url" validate:"omitempty,url"`
		SummaryURL string `yaml:"summary_url" validate:"omitempty,url"`
		CookieURL  string `yaml:"cookie_url" validate:"omitempty,url"`
	} `yaml:"yahoo"`
	Sharadar struct {
		APIKey    string  `yaml:"api_key"`
		BaseURL   string  `yaml:"base_url" validate:"omitempty,url"`
		RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	} `yaml:"sharadar"`
	Warehouse struct {
		DatabaseURL string `yaml:"database_url"`
		Migrate     bool   `yaml:"migrate"`
	} `yaml:"warehouse"`
	Cache struct {
		SingleFlight bool `yaml:"single_flight"`
	} `yaml:"cache"`
	Warmer struct {
		// Cron is a standard five-field schedule. Empty disables warming.
		Cron    string        `yaml:"cron"`
		Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	} `yaml:"warmer"`
	Variants []dashboard.Variant `yaml:"variants" validate:"dive"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("NASDAQ_API_KEY"); v != "" {
		c.Sharadar.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Warehouse.DatabaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Provider.Proxy = v
	}
	if v := os.Getenv("WARM_CRON"); v != "" {
		c.Warmer.Cron = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderYahoo
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.RetryAttempts == 0 {
		c.Provider.RetryAttempts = 3
	}
	if c.Provider.RetryBackoff == 0 {
		c.Provider.RetryBackoff = 500 * time.Millisecond
	}
	if c.Warmer.Timeout == 0 {
		c.Warmer.Timeout = 2 * time.Minute
	}
	if len(c.Variants) == 0 {
		c.Variants = DefaultVariants()
	}
	for i := range c.Variants {
		if c.Variants[i].Title == "" {
			c.Variants[i].Title = DefaultTitle
		}
	}
}

// DefaultVariants returns the two stock dashboards: a Plotly page with the
// volume sub-chart and a Vega-Lite page without it.
func DefaultVariants() []dashboard.Variant {
	return []dashboard.Variant{
		{
			Name:          "main",
			Title:         DefaultTitle,
			Symbols:       append([]string(nil), DefaultSymbols...),
			ShowVolume:    true,
			ChartLibrary:  dashboard.ChartPlotly,
			DefaultPeriod: "quarterly",
		},
		{
			Name:          "compact",
			Title:         DefaultTitle,
			Symbols:       append([]string(nil), DefaultSymbols...),
			ShowVolume:    false,
			ChartLibrary:  dashboard.ChartVegaLite,
			DefaultPeriod: "quarterly",
		},
	}
}

// Validate checks field constraints and the rules that span fields. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs error

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = errors.Join(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = errors.Join(errs, err)
		}
	}

	switch c.Provider.Name {
	case ProviderSharadar:
		if c.Sharadar.APIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("sharadar.api_key (NASDAQ_API_KEY) is required for the sharadar provider"))
		}
	case ProviderWarehouse:
		if c.Warehouse.DatabaseURL == "" {
			errs = errors.Join(errs, fmt.Errorf("warehouse.database_url (DATABASE_URL) is required for the warehouse provider"))
		}
	}

	if c.Warmer.Cron != "" {
		if _, err := cron.ParseStandard(c.Warmer.Cron); err != nil {
			errs = errors.Join(errs, fmt.Errorf("warmer.cron: %w", err))
		}
	}

	seen := make(map[string]bool, len(c.Variants))
	for _, v := range c.Variants {
		if seen[v.Name] {
			errs = errors.Join(errs, fmt.Errorf("variants: duplicate name %q", v.Name))
		}
		seen[v.Name] = true
		if v.DefaultPeriod != "" {
			if _, err := models.ParseGranularity(v.DefaultPeriod); err != nil {
				errs = errors.Join(errs, fmt.Errorf("variants.%s.default_period: %w", v.Name, err))
			}
		}
	}

	return errs
}
