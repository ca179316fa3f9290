package config

import (
	"os"
	"time"
)

type StoreCfg struct {
	// BaseURL is the root of the document store's HTTP API.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for store requests. Usually supplied via
	// the SITE_STORE_TOKEN environment variable rather than the yaml file.
	Token string `yaml:"token"`

	// Timeout bounds a single store request end to end.
	Timeout Duration `yaml:"timeout"`
}

func (c *StoreCfg) adjust() {
	if v := os.Getenv("SITE_STORE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SITE_STORE_TOKEN"); v != "" {
		c.Token = v
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(10 * time.Second)
	}
}

type AuthCfg struct {
	// Secret is the HMAC key admin bearer tokens are signed with.
	// Supplied via SITE_AUTH_SECRET in production.
	Secret string `yaml:"secret"`

	// Issuer is the expected token issuer claim.
	Issuer string `yaml:"issuer"`
}

func (c *AuthCfg) adjust() {
	if v := os.Getenv("SITE_AUTH_SECRET"); v != "" {
		c.Secret = v
	}
	if c.Issuer == "" {
		c.Issuer = "roofix-control-centre"
	}
}

type MailerCfg struct {
	// Endpoint is the email provider's send API.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the provider. Supplied via
	// SITE_MAILER_KEY in production.
	APIKey string `yaml:"api_key"`

	// From is the sender address leads are mailed from.
	From string `yaml:"from"`

	// To is the inbox lead notifications land in.
	To string `yaml:"to"`

	// Timeout bounds a single send request.
	Timeout Duration `yaml:"timeout"`
}

func (c *MailerCfg) adjust() {
	if v := os.Getenv("SITE_MAILER_KEY"); v != "" {
		c.APIKey = v
	}
	if c.From == "" {
		c.From = "leads@roofix.com.au"
	}
	if c.To == "" {
		c.To = "office@roofix.com.au"
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(15 * time.Second)
	}
}

type AnalyticsCfg struct {
	// Endpoint is the reporting API root.
	Endpoint string `yaml:"endpoint"`

	// PropertyID selects the analytics property reports are run against.
	PropertyID string `yaml:"property_id"`

	// APIKey authenticates report queries. Supplied via
	// SITE_ANALYTICS_KEY in production.
	APIKey string `yaml:"api_key"`

	// RatePerSec caps outbound report queries. The reporting API applies
	// its own quota; pacing below it keeps us out of 429 territory.
	RatePerSec int `yaml:"rate_per_sec"`

	// Timeout bounds a single report query.
	Timeout Duration `yaml:"timeout"`
}

func (c *AnalyticsCfg) adjust() {
	if v := os.Getenv("SITE_ANALYTICS_KEY"); v != "" {
		c.APIKey = v
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(10 * time.Second)
	}
}

type GeocodeCfg struct {
	// Endpoint is the address-autocomplete API root.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates autocomplete queries.
	APIKey string `yaml:"api_key"`

	// CountryBias narrows suggestions to one country.
	// Example: "au".
	CountryBias string `yaml:"country_bias"`

	// Timeout bounds a single autocomplete query.
	Timeout Duration `yaml:"timeout"`
}

func (c *GeocodeCfg) adjust() {
	if v := os.Getenv("SITE_GEOCODE_KEY"); v != "" {
		c.APIKey = v
	}
	if c.CountryBias == "" {
		c.CountryBias = "au"
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(5 * time.Second)
	}
}
