package registry

// RegistryMetrics provides observability for handle registry operations.
//
// Implementations can use this interface to collect metrics about cache
// effectiveness and handle churn. This is optional - if not provided,
// metrics collection is skipped.
//
// Example implementations:
//   - Prometheus metrics
//   - In-memory counters for testing
type RegistryMetrics interface {
	// RecordHit records an acquire served from the cache
	RecordHit()

	// RecordMiss records an acquire that had to open natively
	RecordMiss()

	// RecordOpen records a native volume open
	RecordOpen()

	// RecordBypassOpen records an uncached (bypass) open
	RecordBypassOpen()

	// RecordEviction records a capacity eviction
	RecordEviction()

	// RecordRelease records an explicit handle release
	RecordRelease()

	// RecordCollision records a hash collision detected on a cache hit
	RecordCollision()

	// RecordCacheSize records the current number of cached handles
	RecordCacheSize(size int)
}

// noopRegistryMetrics is a default no-op metrics implementation
type noopRegistryMetrics struct{}

func (noopRegistryMetrics) RecordHit()               {}
func (noopRegistryMetrics) RecordMiss()              {}
func (noopRegistryMetrics) RecordOpen()              {}
func (noopRegistryMetrics) RecordBypassOpen()        {}
func (noopRegistryMetrics) RecordEviction()          {}
func (noopRegistryMetrics) RecordRelease()           {}
func (noopRegistryMetrics) RecordCollision()         {}
func (noopRegistryMetrics) RecordCacheSize(size int) {}
