// Package metrics exports repository and cache events to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "catalog"

// outcomeSuccess labels batches that committed.
const outcomeSuccess = "success"

// Metrics is the Prometheus implementation of repositorycache.Metrics.
type Metrics struct {
	CacheLookups         *prometheus.CounterVec
	CacheErrors          *prometheus.CounterVec
	InvalidationFailures prometheus.Counter
	Batches              *prometheus.CounterVec
	BatchItems           prometheus.Histogram
	BatchDuration        prometheus.Histogram
}

var _ repositorycache.Metrics = (*Metrics)(nil)

// New creates the collectors under namespace. They are not registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "cache_lookups_total",
			Help:      "Repository reads by operation and whether the cache served them",
		}, []string{"operation", "result"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "cache_errors_total",
			Help:      "Repository reads that failed because of the cache",
		}, []string{"operation"}),
		InvalidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "invalidation_failures_total",
			Help:      "Cache keys a write could not remove",
		}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "batches_total",
			Help:      "Transactional batches by outcome code",
		}, []string{"outcome"}),
		BatchItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "batch_items",
			Help:      "Products per transactional batch",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "batch_duration_seconds",
			Help:      "Transactional batch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register registers every collector with reg, or the default registerer
// when reg is nil.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	collectors := []prometheus.Collector{
		m.CacheLookups,
		m.CacheErrors,
		m.InvalidationFailures,
		m.Batches,
		m.BatchItems,
		m.BatchDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) CacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) CacheError(operation string) {
	m.CacheErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) InvalidationFailed(count int) {
	if count > 0 {
		m.InvalidationFailures.Add(float64(count))
	}
}

func (m *Metrics) BatchCompleted(code string, items int, elapsed time.Duration) {
	outcome := code
	if outcome == "" {
		outcome = outcomeSuccess
	}
	m.Batches.WithLabelValues(outcome).Inc()
	m.BatchItems.Observe(float64(items))
	m.BatchDuration.Observe(elapsed.Seconds())
}

// RegisterCacheStats exposes the counters of service as Prometheus counters
// read at scrape time. It does nothing when service keeps no statistics.
func RegisterCacheStats(reg prometheus.Registerer, namespace string, service cache.CacheService) error {
	if _, ok := cache.StatsOf(service); !ok {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	stat := func(pick func(cache.Stats) int64) func() float64 {
		return func() float64 {
			s, _ := cache.StatsOf(service)
			return float64(pick(s))
		}
	}
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: namespace, Subsystem: "cache", Name: name, Help: help}
	}

	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(opts("hits_total", "Cache hits"), stat(func(s cache.Stats) int64 { return s.Hits })),
		prometheus.NewCounterFunc(opts("misses_total", "Cache misses"), stat(func(s cache.Stats) int64 { return s.Misses })),
		prometheus.NewCounterFunc(opts("sets_total", "Cache writes"), stat(func(s cache.Stats) int64 { return s.Sets })),
		prometheus.NewCounterFunc(opts("removes_total", "Cache removals"), stat(func(s cache.Stats) int64 { return s.Removes })),
		prometheus.NewCounterFunc(opts("expirations_total", "Entries dropped after their idle window"), stat(func(s cache.Stats) int64 { return s.Expirations })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently cached",
		}, func() float64 {
			s, _ := cache.StatsOf(service)
			return float64(s.Size)
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
