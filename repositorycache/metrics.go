package repositorycache

import "time"

// Operation names reported to Metrics.
const (
	OpGetByID         = "get_by_id"
	OpGetByBarcode    = "get_by_barcode"
	OpGetByName       = "get_by_name"
	OpGetAll          = "get_all"
	OpSearch          = "search"
	OpExistsByID      = "exists_by_id"
	OpExistsByBarcode = "exists_by_barcode"
)

// Metrics receives repository events. Implementations must be safe for
// concurrent use and must not block.
type Metrics interface {
	// CacheLookup records a read served from the cache (hit) or the store.
	CacheLookup(operation string, hit bool)
	// CacheError records a read that failed because of the cache.
	CacheError(operation string)
	// InvalidationFailed records cache keys a write could not remove.
	InvalidationFailed(count int)
	// BatchCompleted records the outcome of a transactional batch. code is
	// empty on success.
	BatchCompleted(code string, items int, elapsed time.Duration)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) CacheLookup(string, bool)                  {}
func (NoopMetrics) CacheError(string)                         {}
func (NoopMetrics) InvalidationFailed(int)                    {}
func (NoopMetrics) BatchCompleted(string, int, time.Duration) {}
