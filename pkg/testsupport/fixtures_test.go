package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/store/memstore"
)

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(`{"name":"milk","quantity":3}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var got struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	}
	LoadFixtureJSON(t, path, &got)

	if got.Name != "milk" || got.Quantity != 3 {
		t.Errorf("unexpected fixture content: %+v", got)
	}
}

func TestCompareGoldenJSON_WritesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "keys.json")
	value := map[string]string{"key": "Product_Id_1"}

	CompareGoldenJSON(t, path, value)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected golden file to be written: %v", err)
	}
	if !strings.Contains(string(data), "Product_Id_1") {
		t.Errorf("unexpected golden content: %s", data)
	}

	// Second comparison reads the file back.
	CompareGoldenJSON(t, path, value)
}

func TestPaths(t *testing.T) {
	if got := FixturePath("a.json"); got != filepath.Join("testdata", "a.json") {
		t.Errorf("FixturePath = %q", got)
	}
	if got := GoldenPath("a.json"); got != filepath.Join("testdata", "golden", "a.json") {
		t.Errorf("GoldenPath = %q", got)
	}
}

func TestProducts(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	products := Products(t, clk)

	if len(products) != 4 {
		t.Fatalf("expected 4 fixture products, got %d", len(products))
	}

	seen := map[string]bool{}
	for _, p := range products {
		if err := p.ValidateInvariant(); err != nil {
			t.Errorf("fixture %q is invalid: %v", p.Name(), err)
		}
		if seen[p.DisplayCode()] {
			t.Errorf("duplicate display code %s", p.DisplayCode())
		}
		seen[p.DisplayCode()] = true
		if p.ArrivalDate().After(clk.Now()) {
			t.Errorf("fixture %q arrives in the future", p.Name())
		}
	}

	if !products[0].HasBarcode() || products[2].HasBarcode() {
		t.Error("unexpected barcode presence in fixtures")
	}
	if products[0].ExpirationDate() == nil || products[3].ExpirationDate() != nil {
		t.Error("unexpected expiration dates in fixtures")
	}
}

func TestNewProduct_UniqueDisplayCodes(t *testing.T) {
	a := NewProduct(t, "Apples")
	b := NewProduct(t, "Pears")

	if a.DisplayCode() == b.DisplayCode() {
		t.Errorf("expected unique display codes, both %s", a.DisplayCode())
	}
}

func TestFaultyCache(t *testing.T) {
	ctx := context.Background()
	c := NewFaultyCache()

	if err := c.Set(ctx, "k", 1, cache.DefaultEntryOptions()); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if opts, ok := c.Options("k"); !ok || opts.Size != 1 {
		t.Errorf("expected recorded options, got %+v %v", opts, ok)
	}

	c.FailGet("k", nil).FailRemove("k", nil)
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrInjected) {
		t.Errorf("expected injected get failure, got %v", err)
	}
	if err := c.Remove(ctx, "k"); !errors.Is(err, ErrInjected) {
		t.Errorf("expected injected remove failure, got %v", err)
	}
	if !c.Has("k") {
		t.Error("failed remove must keep the entry")
	}

	c.Heal()
	if err := c.Remove(ctx, "k"); err != nil {
		t.Errorf("expected healed remove to succeed, got %v", err)
	}
	if got := c.CallCount("Remove:k"); got != 2 {
		t.Errorf("expected 2 remove calls, got %d", got)
	}
}

func TestFaultyCache_PanicOnRemove(t *testing.T) {
	c := NewFaultyCache().PanicOnRemove("k")

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_ = c.Remove(context.Background(), "k")
}

func TestFaultyCache_PanicOnGetAndPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewFaultyCache().PanicOnGet("k").PanicOnRemoveByPrefix()

	panics := func(fn func()) (panicked bool) {
		defer func() { panicked = recover() != nil }()
		fn()
		return false
	}

	if !panics(func() { _, _, _ = c.Get(ctx, "k") }) {
		t.Error("expected Get to panic")
	}
	if !panics(func() { _, _ = c.RemoveByPrefix(ctx, "Search_") }) {
		t.Error("expected RemoveByPrefix to panic")
	}

	c.Heal()
	if panics(func() { _, _, _ = c.Get(ctx, "k") }) {
		t.Error("expected Heal to clear the Get panic")
	}
	if panics(func() { _, _ = c.RemoveByPrefix(ctx, "Search_") }) {
		t.Error("expected Heal to clear the prefix panic")
	}
}

func TestFaultyCache_WithoutPrefixRemoval(t *testing.T) {
	svc := NewFaultyCache().WithoutPrefixRemoval()
	if _, ok := svc.(cache.PrefixRemover); ok {
		t.Error("expected prefix removal to be hidden")
	}
}

func TestFaultyStore(t *testing.T) {
	ctx := context.Background()
	s := NewFaultyStore(memstore.New())
	p := NewProduct(t, "Cheese")

	if err := s.Insert(ctx, p); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	s.Fail("GetByID", nil)
	if _, err := s.GetByID(ctx, p.ID()); !errors.Is(err, ErrInjected) {
		t.Errorf("expected injected failure, got %v", err)
	}

	s.Heal()
	got, err := s.GetByID(ctx, p.ID())
	if err != nil || got == nil {
		t.Fatalf("expected product after heal, got %v %v", got, err)
	}
	if s.Calls("GetByID") != 2 {
		t.Errorf("expected 2 calls, got %d", s.Calls("GetByID"))
	}

	s.Fail("Commit", nil)
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := tx.Update(ctx, got); err != nil {
		t.Fatalf("staged update failed: %v", err)
	}
	if err := tx.Commit(ctx); !errors.Is(err, ErrInjected) {
		t.Errorf("expected injected commit failure, got %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Errorf("rollback failed: %v", err)
	}
}
