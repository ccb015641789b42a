package testsupport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store"
)

// ErrInjected is the default error returned by the faulty fakes.
var ErrInjected = errors.New("testsupport: injected failure")

// FaultyCache is an in-memory cache.CacheService that fails configured keys
// deterministically. It records every call. Entry options are recorded but
// expiry is not simulated.
type FaultyCache struct {
	mu           sync.Mutex
	entries      map[string]any
	options      map[string]cache.EntryOptions
	failGet      map[string]error
	failSet      map[string]error
	failRm       map[string]error
	panicGet     map[string]bool
	panicRm      map[string]bool
	calls        []string
	prefixErr    error
	prefixPanics bool
}

var (
	_ cache.CacheService  = (*FaultyCache)(nil)
	_ cache.PrefixRemover = (*FaultyCache)(nil)
)

// NewFaultyCache returns an empty cache that fails nothing.
func NewFaultyCache() *FaultyCache {
	return &FaultyCache{
		entries:  make(map[string]any),
		options:  make(map[string]cache.EntryOptions),
		failGet:  make(map[string]error),
		failSet:  make(map[string]error),
		failRm:   make(map[string]error),
		panicGet: make(map[string]bool),
		panicRm:  make(map[string]bool),
	}
}

// FailGet makes Get fail for key. A nil err uses ErrInjected.
func (c *FaultyCache) FailGet(key string, err error) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failGet[key] = orInjected(err)
	return c
}

// FailSet makes Set fail for key.
func (c *FaultyCache) FailSet(key string, err error) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSet[key] = orInjected(err)
	return c
}

// FailRemove makes Remove fail for key. The entry is kept.
func (c *FaultyCache) FailRemove(key string, err error) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failRm[key] = orInjected(err)
	return c
}

// PanicOnGet makes Get panic for key.
func (c *FaultyCache) PanicOnGet(key string) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panicGet[key] = true
	return c
}

// PanicOnRemove makes Remove panic for key.
func (c *FaultyCache) PanicOnRemove(key string) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panicRm[key] = true
	return c
}

// FailRemoveByPrefix makes RemoveByPrefix fail.
func (c *FaultyCache) FailRemoveByPrefix(err error) *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixErr = orInjected(err)
	return c
}

// PanicOnRemoveByPrefix makes RemoveByPrefix panic.
func (c *FaultyCache) PanicOnRemoveByPrefix() *FaultyCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixPanics = true
	return c
}

// WithoutPrefixRemoval hides RemoveByPrefix behind a plain CacheService.
func (c *FaultyCache) WithoutPrefixRemoval() cache.CacheService {
	return plainCache{c}
}

// Heal clears every configured failure.
func (c *FaultyCache) Heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.failGet)
	clear(c.failSet)
	clear(c.failRm)
	clear(c.panicGet)
	clear(c.panicRm)
	c.prefixErr = nil
	c.prefixPanics = false
}

func (c *FaultyCache) Get(_ context.Context, key string) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "Get:"+key)

	if c.panicGet[key] {
		panic("testsupport: injected panic reading " + key)
	}
	if err := c.failGet[key]; err != nil {
		return nil, false, err
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *FaultyCache) Set(_ context.Context, key string, value any, opts cache.EntryOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "Set:"+key)

	if err := c.failSet[key]; err != nil {
		return err
	}
	c.entries[key] = value
	c.options[key] = opts
	return nil
}

func (c *FaultyCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	c.calls = append(c.calls, "Remove:"+key)
	panics := c.panicRm[key]
	err := c.failRm[key]
	if !panics && err == nil {
		delete(c.entries, key)
		delete(c.options, key)
	}
	c.mu.Unlock()

	if panics {
		panic("testsupport: injected panic removing " + key)
	}
	return err
}

func (c *FaultyCache) RemoveByPrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "RemoveByPrefix:"+prefix)

	if c.prefixPanics {
		panic("testsupport: injected panic removing prefix " + prefix)
	}
	if c.prefixErr != nil {
		return 0, c.prefixErr
	}
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			delete(c.options, key)
			removed++
		}
	}
	return removed, nil
}

// Put stores value under key without recording a call, to plant entries.
func (c *FaultyCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Has reports whether key is cached.
func (c *FaultyCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Options returns the entry options key was stored with.
func (c *FaultyCache) Options(key string) (cache.EntryOptions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts, ok := c.options[key]
	return opts, ok
}

// Keys returns the cached keys.
func (c *FaultyCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Calls returns the recorded calls as "Op:key" strings.
func (c *FaultyCache) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CallCount counts recorded calls equal to call.
func (c *FaultyCache) CallCount(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.calls {
		if got == call {
			n++
		}
	}
	return n
}

// ClearCalls forgets the recorded calls.
func (c *FaultyCache) ClearCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

type plainCache struct{ c *FaultyCache }

func (p plainCache) Get(ctx context.Context, key string) (any, bool, error) {
	return p.c.Get(ctx, key)
}

func (p plainCache) Set(ctx context.Context, key string, value any, opts cache.EntryOptions) error {
	return p.c.Set(ctx, key, value, opts)
}

func (p plainCache) Remove(ctx context.Context, key string) error {
	return p.c.Remove(ctx, key)
}

// FaultyStore wraps a store.Store, counts calls per operation and fails
// configured operations. Operation names are the method names of
// store.Store and store.Tx ("GetByID", "Begin", "Commit", ...).
type FaultyStore struct {
	store.Store

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
	hooks map[string]func(context.Context)
}

var _ store.Store = (*FaultyStore)(nil)

// NewFaultyStore wraps inner.
func NewFaultyStore(inner store.Store) *FaultyStore {
	return &FaultyStore{
		Store: inner,
		fail:  make(map[string]error),
		calls: make(map[string]int),
		hooks: make(map[string]func(context.Context)),
	}
}

// Fail makes op return err. A nil err uses ErrInjected.
func (s *FaultyStore) Fail(op string, err error) *FaultyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = orInjected(err)
	return s
}

// Before runs fn each time op is called, before it reaches the inner store.
func (s *FaultyStore) Before(op string, fn func(context.Context)) *FaultyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[op] = fn
	return s
}

// Heal clears configured failures and hooks.
func (s *FaultyStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.fail)
	clear(s.hooks)
}

// Calls returns how many times op was called.
func (s *FaultyStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *FaultyStore) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hooks[op]
	err := s.fail[op]
	s.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return err
}

func (s *FaultyStore) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if err := s.enter(ctx, "GetByID"); err != nil {
		return nil, err
	}
	return s.Store.GetByID(ctx, id)
}

func (s *FaultyStore) GetByBarcode(ctx context.Context, code string) (*catalog.Product, error) {
	if err := s.enter(ctx, "GetByBarcode"); err != nil {
		return nil, err
	}
	return s.Store.GetByBarcode(ctx, code)
}

func (s *FaultyStore) FindByName(ctx context.Context, namePart string) ([]*catalog.Product, error) {
	if err := s.enter(ctx, "FindByName"); err != nil {
		return nil, err
	}
	return s.Store.FindByName(ctx, namePart)
}

func (s *FaultyStore) List(ctx context.Context) ([]*catalog.Product, error) {
	if err := s.enter(ctx, "List"); err != nil {
		return nil, err
	}
	return s.Store.List(ctx)
}

func (s *FaultyStore) Search(ctx context.Context, q store.SearchQuery) ([]*catalog.Product, error) {
	if err := s.enter(ctx, "Search"); err != nil {
		return nil, err
	}
	return s.Store.Search(ctx, q)
}

func (s *FaultyStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := s.enter(ctx, "ExistsByID"); err != nil {
		return false, err
	}
	return s.Store.ExistsByID(ctx, id)
}

func (s *FaultyStore) ExistsByBarcode(ctx context.Context, code string) (bool, error) {
	if err := s.enter(ctx, "ExistsByBarcode"); err != nil {
		return false, err
	}
	return s.Store.ExistsByBarcode(ctx, code)
}

func (s *FaultyStore) Insert(ctx context.Context, products ...*catalog.Product) error {
	if err := s.enter(ctx, "Insert"); err != nil {
		return err
	}
	return s.Store.Insert(ctx, products...)
}

func (s *FaultyStore) Update(ctx context.Context, products ...*catalog.Product) error {
	if err := s.enter(ctx, "Update"); err != nil {
		return err
	}
	return s.Store.Update(ctx, products...)
}

func (s *FaultyStore) Delete(ctx context.Context, products ...*catalog.Product) error {
	if err := s.enter(ctx, "Delete"); err != nil {
		return err
	}
	return s.Store.Delete(ctx, products...)
}

func (s *FaultyStore) Begin(ctx context.Context) (store.Tx, error) {
	if err := s.enter(ctx, "Begin"); err != nil {
		return nil, err
	}
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, s: s}, nil
}

type faultyTx struct {
	store.Tx
	s *FaultyStore
}

func (t *faultyTx) Update(ctx context.Context, products ...*catalog.Product) error {
	if err := t.s.enter(ctx, "TxUpdate"); err != nil {
		return err
	}
	return t.Tx.Update(ctx, products...)
}

func (t *faultyTx) Commit(ctx context.Context) error {
	if err := t.s.enter(ctx, "Commit"); err != nil {
		return err
	}
	return t.Tx.Commit(ctx)
}

func (t *faultyTx) Rollback(ctx context.Context) error {
	if err := t.s.enter(ctx, "Rollback"); err != nil {
		return err
	}
	return t.Tx.Rollback(ctx)
}

func orInjected(err error) error {
	if err == nil {
		return ErrInjected
	}
	return err
}
