package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/roofix-au/siteserver/internal/config"
)

func oneMinuteFive() config.WindowCfg {
	return config.WindowCfg{Window: config.Duration(time.Minute), Max: 5}
}

func TestDeniesPastMaxWithinWindow(t *testing.T) {
	l := New(clock.NewMock())

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("contact_form", "203.0.113.7", oneMinuteFive()), "call %d", i+1)
	}
	require.False(t, l.Allow("contact_form", "203.0.113.7", oneMinuteFive()))
}

func TestWindowResetStartsCountAtOne(t *testing.T) {
	mock := clock.NewMock()
	l := New(mock)
	cfg := oneMinuteFive()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("contact_form", "203.0.113.7", cfg))
	}
	require.False(t, l.Allow("contact_form", "203.0.113.7", cfg))

	mock.Add(time.Minute + time.Millisecond)

	// New window: the denied call above must not have consumed anything.
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("contact_form", "203.0.113.7", cfg), "call %d of fresh window", i+1)
	}
	require.False(t, l.Allow("contact_form", "203.0.113.7", cfg))
}

func TestActionsAndClientsAreIndependent(t *testing.T) {
	l := New(clock.NewMock())
	cfg := config.WindowCfg{Window: config.Duration(time.Minute), Max: 1}

	require.True(t, l.Allow("contact_form", "203.0.113.7", cfg))
	require.False(t, l.Allow("contact_form", "203.0.113.7", cfg))

	require.True(t, l.Allow("conversion", "203.0.113.7", cfg))
	require.True(t, l.Allow("contact_form", "203.0.113.8", cfg))
}

func TestSweepDropsExpiredWindows(t *testing.T) {
	mock := clock.NewMock()
	l := New(mock)
	cfg := config.WindowCfg{Window: config.Duration(time.Second), Max: 1}

	for i := 0; i <= sweepThreshold; i++ {
		l.Allow("conversion", fmt.Sprintf("198.51.100.%d", i), cfg)
	}
	mock.Add(2 * time.Second)

	l.Allow("conversion", "203.0.113.1", cfg)
	require.LessOrEqual(t, l.Len(), 2)
}
