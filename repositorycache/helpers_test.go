package repositorycache

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/store/memstore"
)

type batchEvent struct {
	code  string
	items int
}

// recordingMetrics keeps every event it receives.
type recordingMetrics struct {
	mu                   sync.Mutex
	lookups              map[string][]bool
	cacheErrors          []string
	invalidationFailures int
	batches              []batchEvent
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{lookups: make(map[string][]bool)}
}

func (m *recordingMetrics) CacheLookup(op string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[op] = append(m.lookups[op], hit)
}

func (m *recordingMetrics) CacheError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheErrors = append(m.cacheErrors, op)
}

func (m *recordingMetrics) InvalidationFailed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidationFailures += n
}

func (m *recordingMetrics) BatchCompleted(code string, items int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batchEvent{code: code, items: items})
}

func (m *recordingMetrics) lookupsFor(op string) []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.lookups[op]...)
}

func (m *recordingMetrics) failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidationFailures
}

func (m *recordingMetrics) batchEvents() []batchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]batchEvent(nil), m.batches...)
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	repo    *ProductRepository
	cache   *testsupport.FaultyCache
	store   *testsupport.FaultyStore
	mem     *memstore.Store
	metrics *recordingMetrics
	logs    *syncBuffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		cache:   testsupport.NewFaultyCache(),
		mem:     memstore.New(),
		metrics: newRecordingMetrics(),
		logs:    &syncBuffer{},
	}
	f.store = testsupport.NewFaultyStore(f.mem)

	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithLogger(logger), WithMetrics(f.metrics)}, opts...)

	repo, err := New(f.store, f.cache, opts...)
	require.NoError(t, err)
	f.repo = repo

	t.Cleanup(func() { _ = f.mem.Close() })
	return f
}
