package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
)

const (
	metricsInterval  = 10 * time.Second
	metricsRetention = time.Minute
)

// SetupMetrics installs the process-global sink the counter call sites
// emit into. Aggregated intervals are held in memory and dumped to
// stderr on SIGUSR1.
func SetupMetrics(serviceName string) (*metrics.InmemSink, error) {
	sink := metrics.NewInmemSink(metricsInterval, metricsRetention)
	metrics.DefaultInmemSignal(sink)

	cfg := metrics.DefaultConfig(serviceName)
	cfg.EnableHostname = false
	if _, err := metrics.NewGlobal(cfg, sink); err != nil {
		return nil, err
	}
	return sink, nil
}
