package config

import "time"

type ContentCfg struct {
	// TTL is the lifetime of cached collections and singleton page
	// documents. Site copy changes rarely, so the default is generous.
	// Example: "5m".
	TTL Duration `yaml:"ttl"`

	// RealtimeTTL is the lifetime of cached realtime analytics metrics.
	// It exists to bound calls to the rate-limited reporting API when
	// several admin tabs poll at once, so it is deliberately short.
	// Example: "18s".
	RealtimeTTL Duration `yaml:"realtime_ttl"`
}

func (c *ContentCfg) adjust() {
	if c.TTL <= 0 {
		c.TTL = Duration(5 * time.Minute)
	}
	if c.RealtimeTTL <= 0 {
		c.RealtimeTTL = Duration(18 * time.Second)
	}
}

type WindowCfg struct {
	// Window is the fixed-window length.
	Window Duration `yaml:"window"`

	// Max is the number of requests allowed per client within one window.
	Max int `yaml:"max"`
}

type LimitsCfg struct {
	// ContactForm limits contact-form submissions per client IP.
	ContactForm WindowCfg `yaml:"contact_form"`

	// Conversion limits conversion-event recording per client IP.
	Conversion WindowCfg `yaml:"conversion"`
}

func (c *LimitsCfg) adjust() {
	if c.ContactForm.Window <= 0 {
		c.ContactForm.Window = Duration(time.Minute)
	}
	if c.ContactForm.Max <= 0 {
		c.ContactForm.Max = 5
	}
	if c.Conversion.Window <= 0 {
		c.Conversion.Window = Duration(time.Minute)
	}
	if c.Conversion.Max <= 0 {
		c.Conversion.Max = 30
	}
}

type TelemetryCfg struct {
	// StatsLogsEnabled turns on the periodic cache stats log line.
	StatsLogsEnabled bool `yaml:"stats_logs_enabled"`

	// StatsLogsInterval is how often the stats line is emitted.
	StatsLogsInterval Duration `yaml:"stats_logs_interval"`
}

func (c *TelemetryCfg) adjust() {
	if c.StatsLogsInterval <= 0 {
		c.StatsLogsInterval = Duration(30 * time.Second)
	}
}
