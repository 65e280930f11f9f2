// Package metrics provides Prometheus metrics for go-match-bench.
//
// All metrics are aggregate: cardinality is bounded by the outcome set and the
// three process roles, never by the number of games.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exit code categories used as the "category" label.
const (
	ExitClean   = "clean"
	ExitError   = "error"
	ExitSignal  = "signal"
	ExitTimeout = "timeout"
	ExitStopped = "stopped"
)

// ExitCategory buckets an exit code for the exits counter.
func ExitCategory(code int) string {
	switch {
	case code == 0:
		return ExitClean
	case code == 124:
		return ExitTimeout
	case code == 130:
		return ExitStopped
	case code > 128:
		return ExitSignal
	default:
		return ExitError
	}
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	RunID      string
	Version    string
	PlayerMode string
	TotalGames int
	Lanes      int
}

// Collector manages all Prometheus metrics for a run.
//
// Metrics live on the collector rather than in package variables so that
// every registry (one per run, one per test) starts from zero.
type Collector struct {
	info         *prometheus.GaugeVec
	targetGames  prometheus.Gauge
	lanes        prometheus.Gauge
	activeGames  prometheus.Gauge
	gamesTotal   *prometheus.CounterVec
	gameDuration prometheus.Histogram
	processExits *prometheus.CounterVec

	// For summary generation
	mu         sync.Mutex
	active     int
	peakActive int
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "match_bench_info",
				Help: "Information about the benchmark run (value always 1)",
			},
			[]string{"run_id", "version", "my_mode"},
		),
		targetGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_bench_target_games",
			Help: "Number of games requested",
		}),
		lanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_bench_lanes",
			Help: "Number of concurrent lanes",
		}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_bench_active_games",
			Help: "Games with processes currently running",
		}),
		gamesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_bench_games_total",
				Help: "Games reported, by winner",
			},
			[]string{"winner"},
		),
		gameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "match_bench_game_duration_seconds",
			Help:    "Wall time of played games",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5s .. ~43m
		}),
		processExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_bench_process_exits_total",
				Help: "External process exits, by role and exit category",
			},
			[]string{"role", "category"},
		),
	}

	registry.MustRegister(
		c.info,
		c.targetGames,
		c.lanes,
		c.activeGames,
		c.gamesTotal,
		c.gameDuration,
		c.processExits,
	)

	c.info.WithLabelValues(cfg.RunID, cfg.Version, cfg.PlayerMode).Set(1)
	c.targetGames.Set(float64(cfg.TotalGames))
	c.lanes.Set(float64(cfg.Lanes))

	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// GameStarted records that a game spawned its server.
func (c *Collector) GameStarted() {
	c.activeGames.Inc()

	c.mu.Lock()
	c.active++
	if c.active > c.peakActive {
		c.peakActive = c.active
	}
	c.mu.Unlock()
}

// GameEnded records that every process of a started game is gone.
func (c *Collector) GameEnded() {
	c.activeGames.Dec()

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
}

// RecordResult counts a reported game. Skipped games carry no duration.
func (c *Collector) RecordResult(winner string, played bool, d time.Duration) {
	c.gamesTotal.WithLabelValues(winner).Inc()
	if played {
		c.gameDuration.Observe(d.Seconds())
	}
}

// RecordExit records the exit code of one process of a game.
func (c *Collector) RecordExit(role string, exitCode int) {
	c.processExits.WithLabelValues(role, ExitCategory(exitCode)).Inc()
}

// PeakActive returns the highest number of concurrently active games.
func (c *Collector) PeakActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peakActive
}

