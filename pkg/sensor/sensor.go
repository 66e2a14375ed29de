// Package sensor watches the health of the storage engine while the
// server runs: pebble WAL and compaction pressure plus process memory,
// exported as prometheus gauges with warn logs at thresholds.
package sensor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"refersync/pkg/logger"
	"refersync/pkg/store"
)

var (
	walBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refersync_store_wal_bytes",
		Help: "Size of the pebble write-ahead log in bytes.",
	})
	memtableBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refersync_store_memtable_bytes",
		Help: "Total size of pebble memtables in bytes.",
	})
	compactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refersync_store_compactions_total",
		Help: "Cumulative pebble compaction count.",
	})
	heapBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refersync_process_heap_bytes",
		Help: "Process heap in use, bytes.",
	})
)

// Config tunes the monitor.
type Config struct {
	PollInterval time.Duration
	// WALHighBytes triggers a warn log when the WAL grows past it.
	WALHighBytes uint64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 15 * time.Second,
		WALHighBytes: 1 << 30,
	}
}

// Monitor periodically samples store and runtime health.
type Monitor struct {
	store *store.Store
	cfg   Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor over st. Zero config values fall back to
// defaults.
func NewMonitor(st *store.Store, cfg Config) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.WALHighBytes == 0 {
		cfg.WALHighBytes = DefaultConfig().WALHighBytes
	}
	return &Monitor{store: st, cfg: cfg}
}

// Start begins background sampling. Call Stop to terminate.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
	logger.Info("store_monitor_started", "interval", m.cfg.PollInterval.String())
}

// Stop stops sampling and waits for the worker to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heapBytes.Set(float64(ms.HeapInuse))

	pm := m.store.PebbleMetrics()
	if pm == nil {
		return
	}
	walBytes.Set(float64(pm.WAL.Size))
	memtableBytes.Set(float64(pm.MemTable.Size))
	compactions.Set(float64(pm.Compact.Count))

	if uint64(pm.WAL.Size) >= m.cfg.WALHighBytes {
		logger.Warn("store_wal_high", "wal_bytes", pm.WAL.Size, "threshold", m.cfg.WALHighBytes)
	}
}
