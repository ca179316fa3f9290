package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/roofix-au/siteserver/internal/config"
)

type stubReporter struct {
	visitors int
	err      error
	calls    atomic.Int64
}

func (s *stubReporter) RunReport(context.Context, ReportQuery) ([]ReportRow, error) {
	return nil, nil
}

func (s *stubReporter) RealtimeVisitors(context.Context, string) (int, error) {
	s.calls.Add(1)
	return s.visitors, s.err
}

func newRealtime(rep Reporter, clk clock.Clock) *RealtimeCache {
	cfg := &config.ContentCfg{TTL: config.Duration(5 * time.Minute), RealtimeTTL: config.Duration(18 * time.Second)}
	return NewRealtimeCache(cfg, rep, clk, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestVisitorsCachedWithinTTL(t *testing.T) {
	rep := &stubReporter{visitors: 7}
	c := newRealtime(rep, clock.NewMock())

	for i := 0; i < 20; i++ {
		n, ok := c.Visitors(t.Context(), "prop-1")
		require.True(t, ok)
		require.Equal(t, 7, n)
	}
	require.Equal(t, int64(1), rep.calls.Load())
}

func TestVisitorsExpiryEdge(t *testing.T) {
	mock := clock.NewMock()
	rep := &stubReporter{visitors: 3}
	c := newRealtime(rep, mock)

	c.Visitors(t.Context(), "prop-1")

	mock.Add(18*time.Second - time.Millisecond)
	c.Visitors(t.Context(), "prop-1")
	require.Equal(t, int64(1), rep.calls.Load())

	mock.Add(2 * time.Millisecond)
	c.Visitors(t.Context(), "prop-1")
	require.Equal(t, int64(2), rep.calls.Load())
}

func TestVisitorsFailureSwallowedAndNotCached(t *testing.T) {
	rep := &stubReporter{err: errors.New("quota exceeded")}
	c := newRealtime(rep, clock.NewMock())

	n, ok := c.Visitors(t.Context(), "prop-1")
	require.False(t, ok)
	require.Zero(t, n)

	c.Visitors(t.Context(), "prop-1")
	require.Equal(t, int64(2), rep.calls.Load())
}

func TestVisitorsPropertiesIndependent(t *testing.T) {
	rep := &stubReporter{visitors: 1}
	c := newRealtime(rep, clock.NewMock())

	c.Visitors(t.Context(), "prop-1")
	c.Visitors(t.Context(), "prop-2")
	require.Equal(t, int64(2), rep.calls.Load())
}
