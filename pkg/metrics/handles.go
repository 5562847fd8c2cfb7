package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	groveregistry "github.com/grovedata/grove/pkg/registry"
)

// registryMetrics is the Prometheus implementation of the
// registry.RegistryMetrics interface.
//
// This implementation collects metrics about handle registry operations
// including:
//   - Cache hit/miss counts
//   - Native volume opens (cached and bypass)
//   - Evictions and explicit releases
//   - Hash collisions
//   - Current cached handle count
type registryMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	opens       prometheus.Counter
	bypassOpens prometheus.Counter
	evictions   prometheus.Counter
	releases    prometheus.Counter
	collisions  prometheus.Counter
	cacheSize   prometheus.Gauge
}

// NewRegistryMetrics creates a new Prometheus-backed RegistryMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called), so callers can pass the result to registry.New unconditionally.
func NewRegistryMetrics() groveregistry.RegistryMetrics {
	if !IsEnabled() {
		return noopRegistryMetrics{}
	}

	reg := GetRegistry()

	return &registryMetrics{
		hits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_hits_total",
				Help: "Total number of volume acquires served from the handle cache",
			},
		),
		misses: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_misses_total",
				Help: "Total number of volume acquires that required a native open",
			},
		),
		opens: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_opens_total",
				Help: "Total number of native volume opens",
			},
		),
		bypassOpens: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_bypass_opens_total",
				Help: "Total number of uncached (cache-bypassing) volume opens",
			},
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_evictions_total",
				Help: "Total number of handles evicted from the cache by the capacity bound",
			},
		),
		releases: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_releases_total",
				Help: "Total number of explicitly released handles",
			},
		),
		collisions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "grove_registry_collisions_total",
				Help: "Total number of descriptor hash collisions detected on cache hits",
			},
		),
		cacheSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "grove_registry_cached_handles",
				Help: "Current number of handles held in the cache",
			},
		),
	}
}

func (m *registryMetrics) RecordHit()               { m.hits.Inc() }
func (m *registryMetrics) RecordMiss()              { m.misses.Inc() }
func (m *registryMetrics) RecordOpen()              { m.opens.Inc() }
func (m *registryMetrics) RecordBypassOpen()        { m.bypassOpens.Inc() }
func (m *registryMetrics) RecordEviction()          { m.evictions.Inc() }
func (m *registryMetrics) RecordRelease()           { m.releases.Inc() }
func (m *registryMetrics) RecordCollision()         { m.collisions.Inc() }
func (m *registryMetrics) RecordCacheSize(size int) { m.cacheSize.Set(float64(size)) }

// noopRegistryMetrics is a no-op implementation with zero overhead.
type noopRegistryMetrics struct{}

func (noopRegistryMetrics) RecordHit()               {}
func (noopRegistryMetrics) RecordMiss()              {}
func (noopRegistryMetrics) RecordOpen()              {}
func (noopRegistryMetrics) RecordBypassOpen()        {}
func (noopRegistryMetrics) RecordEviction()          {}
func (noopRegistryMetrics) RecordRelease()           {}
func (noopRegistryMetrics) RecordCollision()         {}
func (noopRegistryMetrics) RecordCacheSize(size int) {}
