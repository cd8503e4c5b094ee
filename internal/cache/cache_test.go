package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/opensource-finance/baobab/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timed := NewLRUCacheWithClock(10, clock)
		_ = timed.Set(ctx, "expiring", []byte("temp"), time.Minute)

		val, _ := timed.Get(ctx, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		clock.Advance(2 * time.Minute)

		val, _ = timed.Get(ctx, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
		if st := timed.Stats(); st.Size != 0 {
			t.Errorf("expected expired entry to be removed, size %d", st.Size)
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
		if ev := smallCache.Stats().Evictions; ev != 1 {
			t.Errorf("expected 1 eviction, got %d", ev)
		}
	})

	t.Run("ComparisonCache", func(t *testing.T) {
		result := &domain.ComparisonResult{
			ID:          "cmp-001",
			RegionID:    "WestAfrica",
			CropID:      "maize",
			ScenarioIDs: []string{"SSP2-4.5"},
			Years:       []int{2050},
			Cells: []domain.Cell{{
				ScenarioID: "SSP2-4.5",
				Year:       2050,
				Status:     domain.CellOK,
				Outcome: &domain.CellOutcome{
					Impact: domain.YieldImpact{YieldChangePct: -12.5},
					Rating: domain.VulnerabilityRating{Tier: domain.TierModerate},
				},
			}},
		}

		err := cache.SetComparison(ctx, "cmp:key", result, time.Minute)
		if err != nil {
			t.Fatalf("SetComparison failed: %v", err)
		}

		retrieved, err := cache.GetComparison(ctx, "cmp:key")
		if err != nil {
			t.Fatalf("GetComparison failed: %v", err)
		}
		if retrieved == nil || retrieved.ID != "cmp-001" {
			t.Fatalf("expected cmp-001, got %+v", retrieved)
		}
		cell := retrieved.Cells[0]
		if cell.Outcome.Rating.Tier != domain.TierModerate {
			t.Errorf("expected Moderate tier, got %s", cell.Outcome.Rating.Tier)
		}
		if cell.Outcome.Impact.YieldChangePct != -12.5 {
			t.Errorf("expected -12.5, got %v", cell.Outcome.Impact.YieldChangePct)
		}

		missing, err := cache.GetComparison(ctx, "cmp:other")
		if err != nil || missing != nil {
			t.Errorf("expected clean miss, got %v, %v", missing, err)
		}
	})

	t.Run("CorruptComparison", func(t *testing.T) {
		_ = cache.Set(ctx, "cmp:bad", []byte("{not json"), time.Minute)
		if _, err := cache.GetComparison(ctx, "cmp:bad"); !errors.Is(err, ErrCorruptEntry) {
			t.Errorf("expected ErrCorruptEntry, got %v", err)
		}
		if val, _ := cache.Get(ctx, "cmp:bad"); val != nil {
			t.Error("expected corrupt entry to be dropped")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, "k2", []byte("v2"), time.Minute)

		_, _ = statsCache.Get(ctx, "k1")
		_, _ = statsCache.Get(ctx, "k3")

		want := Stats{Size: 2, Capacity: 50, Hits: 1, Misses: 1}
		if got := statsCache.Stats(); got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		val, _ := testCache.Get(ctx, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	local := NewLRUCacheWithClock(10, clock)
	remote := NewLRUCacheWithClock(10, clock)
	c := NewTwoPhaseCache(local, remote, time.Minute)

	t.Run("WritesBothTiers", func(t *testing.T) {
		if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if val, _ := local.Get(ctx, "k"); string(val) != "v" {
			t.Errorf("expected L1 to hold v, got %q", val)
		}
		if val, _ := remote.Get(ctx, "k"); string(val) != "v" {
			t.Errorf("expected L2 to hold v, got %q", val)
		}
	})

	t.Run("L1ExpiresBeforeL2", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		if val, _ := local.Get(ctx, "k"); val != nil {
			t.Error("expected L1 entry to expire after the local TTL")
		}
		val, err := c.Get(ctx, "k")
		if err != nil || string(val) != "v" {
			t.Fatalf("expected L2 hit, got %q, %v", val, err)
		}
		if val, _ := local.Get(ctx, "k"); string(val) != "v" {
			t.Error("expected L2 hit to refill L1")
		}
	})

	t.Run("ShortTTLCapsL1", func(t *testing.T) {
		_ = c.Set(ctx, "short", []byte("s"), 10*time.Second)
		clock.Advance(20 * time.Second)
		if val, _ := c.Get(ctx, "short"); val != nil {
			t.Errorf("expected miss in both tiers, got %q", val)
		}
	})

	t.Run("DeleteBothTiers", func(t *testing.T) {
		_ = c.Set(ctx, "d", []byte("x"), time.Hour)
		if err := c.Delete(ctx, "d"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if val, _ := remote.Get(ctx, "d"); val != nil {
			t.Error("expected L2 entry to be deleted")
		}
		if val, _ := c.Get(ctx, "d"); val != nil {
			t.Error("expected miss after delete")
		}
	})

	t.Run("Comparison", func(t *testing.T) {
		result := &domain.ComparisonResult{ID: "cmp-2", RegionID: "EastAfrica", CropID: "beans"}
		if err := c.SetComparison(ctx, "cmp", result, time.Hour); err != nil {
			t.Fatalf("SetComparison failed: %v", err)
		}
		got, err := c.GetComparison(ctx, "cmp")
		if err != nil || got == nil || got.CropID != "beans" {
			t.Fatalf("expected cached comparison, got %+v, %v", got, err)
		}
	})
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(domain.CacheConfig{RedisPassword: "secret", RedisDB: 2})
	if opts.Addr != "localhost:6379" {
		t.Errorf("expected default address, got %s", opts.Addr)
	}
	if opts.Password != "secret" || opts.DB != 2 {
		t.Errorf("unexpected options %+v", opts)
	}

	opts = redisOptions(domain.CacheConfig{RedisAddr: "redis:6380"})
	if opts.Addr != "redis:6380" {
		t.Errorf("expected redis:6380, got %s", opts.Addr)
	}
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c domain.Cache = NopCache{}

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	val, err := c.Get(ctx, "k")
	if err != nil || val != nil {
		t.Errorf("expected miss, got %v, %v", val, err)
	}
	result, err := c.GetComparison(ctx, "k")
	if err != nil || result != nil {
		t.Errorf("expected miss, got %v, %v", result, err)
	}
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("NoneType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "none"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := cache.(NopCache); !ok {
			t.Error("expected NopCache for none type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
