// Package ratelimit is a local-process fixed-window request limiter.
// It deters abuse of the public form endpoints; it is not a billing
// meter, and it coordinates nothing across instances.
package ratelimit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/zeebo/xxh3"

	"github.com/roofix-au/siteserver/internal/config"
)

// sweepThreshold bounds map growth from one-off client IPs. Once crossed,
// expired windows are pruned inline on the next Allow call.
const sweepThreshold = 4096

type key struct {
	hi, lo uint64
}

func limiterKey(action, ip string) key {
	sum := xxh3.HashString128(action + "|" + ip)
	return key{hi: sum.Hi, lo: sum.Lo}
}

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	clk clock.Clock

	mu      sync.Mutex
	windows map[key]window
}

func New(clk clock.Clock) *Limiter {
	return &Limiter{
		clk:     clk,
		windows: make(map[key]window),
	}
}

// Allow records one request for action+ip against the given window and
// reports whether it fits. A request past the window's reset time starts
// a fresh window with count 1 rather than continuing the old one.
func (l *Limiter) Allow(action, ip string, cfg config.WindowCfg) bool {
	now := l.clk.Now()
	k := limiterKey(action, ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[k]
	if !ok || now.After(w.resetAt) {
		if len(l.windows) > sweepThreshold {
			l.sweep(now)
		}
		l.windows[k] = window{count: 1, resetAt: now.Add(cfg.Window.Std())}
		return true
	}

	if w.count >= cfg.Max {
		return false
	}
	w.count++
	l.windows[k] = w
	return true
}

// sweep drops expired windows; caller holds the lock.
func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

// Len reports tracked windows, expired ones included until swept.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
