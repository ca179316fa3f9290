// Package router decides, per request, whether to pass through, redirect
// to the canonical host, or internally rewrite to the admin page tree.
// It runs before any other handling, does no I/O and cannot fail: every
// host/path pair falls into exactly one decision.
package router

import (
	"net"
	"strings"

	"github.com/roofix-au/siteserver/internal/config"
)

type Action int

const (
	// PassThrough leaves the request untouched.
	PassThrough Action = iota
	// NotFound serves a plain 404. Used for admin paths on foreign hosts
	// so that neither content nor a redirect leaks the path's existence.
	NotFound
	// Rewrite serves a different internal path without changing the
	// address bar. Always paired with the noindex marker.
	Rewrite
	// RedirectCanonical sends a permanent redirect to the canonical
	// host, same path and query, scheme preserved. The www variant is
	// cross-origin to browsers, which breaks same-origin fetches from
	// page scripts.
	RedirectCanonical
)

// Decision is computed fresh for every request and never stored.
type Decision struct {
	Action Action

	// Path is the internal target for Rewrite decisions.
	Path string

	// Host is the target hostname for RedirectCanonical decisions.
	Host string

	// NoIndex marks the response "noindex, nofollow". Set for every
	// admin-tree rewrite; admin pages must never reach a search index.
	NoIndex bool
}

type Router struct {
	canonical string
	admin     string
	prefix    string
}

func New(cfg *config.HostsCfg) *Router {
	return &Router{
		canonical: cfg.Canonical,
		admin:     cfg.Admin,
		prefix:    cfg.AdminPathPrefix,
	}
}

// Decide maps a host header and request path to one routing decision.
// Order matters: the canonical-host redirect changes the host itself, so
// every later host comparison would act on the wrong value if it ran
// second.
func (r *Router) Decide(host, path string) Decision {
	host = stripPort(host)

	if host == "www."+r.canonical {
		return Decision{Action: RedirectCanonical, Host: r.canonical}
	}

	if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
		if !r.adminHost(host) && !loopback(host) {
			return Decision{Action: NotFound}
		}
		return Decision{Action: Rewrite, Path: path, NoIndex: true}
	}

	if host == r.admin {
		if target, ok := r.cleanURL(path); ok {
			return Decision{Action: Rewrite, Path: target, NoIndex: true}
		}
	}

	return Decision{Action: PassThrough}
}

func (r *Router) adminHost(host string) bool {
	return host == r.admin || strings.HasSuffix(host, "."+r.admin)
}

// cleanURL maps the admin host's short paths onto the prefixed page tree.
func (r *Router) cleanURL(path string) (string, bool) {
	switch {
	case path == "/" || path == "":
		return r.prefix, true
	case path == "/login", path == "/testimonials", path == "/analytics":
		return r.prefix + path, true
	case path == "/projects", strings.HasPrefix(path, "/projects/"),
		path == "/services", strings.HasPrefix(path, "/services/"):
		return r.prefix + path, true
	}
	return "", false
}

func loopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// Bare IPv6 literals keep their brackets in the Host header.
	return strings.Trim(host, "[]")
}
