package config

import (
	"os"
	"time"
)

type ServerCfg struct {
	// Addr is the listen address of the HTTP server.
	// Example: ":8080".
	Addr string `yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Gzip enables response compression for public endpoints.
	Gzip bool `yaml:"gzip"`
}

func (c *ServerCfg) adjust() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if v := os.Getenv("SITE_ADDR"); v != "" {
		c.Addr = v
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = Duration(10 * time.Second)
	}
}

type HostsCfg struct {
	// Canonical is the single hostname all equivalent hostnames normalize to.
	// Requests for "www." + Canonical get a permanent redirect here.
	// Example: "roofix.com.au".
	Canonical string `yaml:"canonical"`

	// Admin is the hostname the control centre is served from. Requests for
	// the admin path prefix from any other non-loopback host get a 404.
	// Example: "admin.roofix.com.au".
	Admin string `yaml:"admin"`

	// AdminPathPrefix is the internal path the control centre page tree
	// lives under. The admin host presents clean URLs on top of it.
	// Example: "/control-centre".
	AdminPathPrefix string `yaml:"admin_path_prefix"`
}

func (c *HostsCfg) adjust() {
	if c.Canonical == "" {
		c.Canonical = "roofix.com.au"
	}
	if c.Admin == "" {
		c.Admin = "admin.roofix.com.au"
	}
	if v := os.Getenv("SITE_ADMIN_HOST"); v != "" {
		c.Admin = v
	}
	if c.AdminPathPrefix == "" {
		c.AdminPathPrefix = "/control-centre"
	}
}
