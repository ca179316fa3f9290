package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    *ServerCfg    `yaml:"server"`
	Hosts     *HostsCfg     `yaml:"hosts"`
	Content   *ContentCfg   `yaml:"content"`
	Limits    *LimitsCfg    `yaml:"limits"`
	Store     *StoreCfg     `yaml:"store"`
	Auth      *AuthCfg      `yaml:"auth"`
	Mailer    *MailerCfg    `yaml:"mailer"`
	Analytics *AnalyticsCfg `yaml:"analytics"`
	Geocode   *GeocodeCfg   `yaml:"geocode"`
	Telemetry *TelemetryCfg `yaml:"telemetry"`
}

// AdjustConfig fills zero-valued sections with defaults and applies
// environment overrides for hostnames and secrets, so a minimal yaml file
// still yields a runnable configuration.
func (cfg *Config) AdjustConfig() {
	if cfg.Server == nil {
		cfg.Server = &ServerCfg{}
	}
	cfg.Server.adjust()

	if cfg.Hosts == nil {
		cfg.Hosts = &HostsCfg{}
	}
	cfg.Hosts.adjust()

	if cfg.Content == nil {
		cfg.Content = &ContentCfg{}
	}
	cfg.Content.adjust()

	if cfg.Limits == nil {
		cfg.Limits = &LimitsCfg{}
	}
	cfg.Limits.adjust()

	if cfg.Store == nil {
		cfg.Store = &StoreCfg{}
	}
	cfg.Store.adjust()

	if cfg.Auth == nil {
		cfg.Auth = &AuthCfg{}
	}
	cfg.Auth.adjust()

	if cfg.Mailer == nil {
		cfg.Mailer = &MailerCfg{}
	}
	cfg.Mailer.adjust()

	if cfg.Analytics == nil {
		cfg.Analytics = &AnalyticsCfg{}
	}
	cfg.Analytics.adjust()

	if cfg.Geocode == nil {
		cfg.Geocode = &GeocodeCfg{}
	}
	cfg.Geocode.adjust()

	if cfg.Telemetry == nil {
		cfg.Telemetry = &TelemetryCfg{}
	}
	cfg.Telemetry.adjust()
}

// Validate reports every problem at once rather than stopping at the first.
func (cfg *Config) Validate() error {
	var errs *multierror.Error

	if cfg.Hosts.Canonical == "" {
		errs = multierror.Append(errs, fmt.Errorf("hosts: canonical host is required"))
	}
	if cfg.Hosts.Admin == "" {
		errs = multierror.Append(errs, fmt.Errorf("hosts: admin host is required"))
	}
	if cfg.Content.TTL <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("content: ttl must be positive, got %s", cfg.Content.TTL))
	}
	if cfg.Content.RealtimeTTL <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("content: realtime_ttl must be positive, got %s", cfg.Content.RealtimeTTL))
	}
	if cfg.Store.BaseURL == "" {
		errs = multierror.Append(errs, fmt.Errorf("store: base_url is required"))
	}
	if cfg.Auth.Secret == "" {
		errs = multierror.Append(errs, fmt.Errorf("auth: secret is required"))
	}
	for name, w := range map[string]WindowCfg{
		"contact_form": cfg.Limits.ContactForm,
		"conversion":   cfg.Limits.Conversion,
	} {
		if w.Window <= 0 || w.Max <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("limits: %s window and max must be positive", name))
		}
	}

	return errs.ErrorOrNil()
}

func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	// An empty yaml file unmarshals to nil; defaults still apply.
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}
