package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/baobab/internal/domain"
)

// ErrCorruptEntry is returned when a cached comparison cannot be decoded.
// The entry is dropped so the next lookup misses cleanly.
var ErrCorruptEntry = errors.New("corrupt cache entry")

const defaultLocalTTL = 5 * time.Minute

// New creates a new cache based on configuration.
// "memory" returns an LRU cache, "redis" returns Redis (behind a local L1
// when two-phase is enabled) and "none" disables caching.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		remote, err := NewRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		if !cfg.EnableTwoPhase {
			return remote, nil
		}
		return NewTwoPhaseCache(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil

	case "none":
		return NopCache{}, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// store is the byte-level half of domain.Cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// comparisons adds the typed comparison accessors on top of a store.
type comparisons struct {
	s store
}

// GetComparison returns the cached result for key, or nil on a miss.
func (c comparisons) GetComparison(ctx context.Context, key string) (*domain.ComparisonResult, error) {
	data, err := c.s.Get(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	var result domain.ComparisonResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.s.Delete(ctx, key)
		return nil, fmt.Errorf("%w %q: %v", ErrCorruptEntry, key, err)
	}
	return &result, nil
}

// SetComparison stores result under key for ttl.
func (c comparisons) SetComparison(ctx context.Context, key string, result *domain.ComparisonResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding comparison %s: %w", result.ID, err)
	}
	return c.s.Set(ctx, key, data, ttl)
}

// TwoPhaseCache reads through a local LRU (L1) before a shared store (L2),
// normally Redis. Writes go to both; L1 entries never outlive L2.
type TwoPhaseCache struct {
	comparisons
	local  *LRUCache
	remote store
	l1TTL  time.Duration
}

// NewTwoPhaseCache layers local in front of remote. A zero l1TTL uses five
// minutes.
func NewTwoPhaseCache(local *LRUCache, remote store, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = defaultLocalTTL
	}
	c := &TwoPhaseCache{local: local, remote: remote, l1TTL: l1TTL}
	c.comparisons = comparisons{s: c}
	return c
}

// Get checks L1, then L2, refilling L1 on an L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	if val, _ := c.local.Get(ctx, key); val != nil {
		return val, nil
	}

	val, err := c.remote.Get(ctx, key)
	if err != nil || val == nil {
		return nil, err
	}
	_ = c.local.Set(ctx, key, val, c.l1TTL)
	return val, nil
}

func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.local.Set(ctx, key, value, min(ttl, c.l1TTL))
}

func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	_ = c.local.Delete(ctx, key)
	return c.remote.Delete(ctx, key)
}

// Ping reports L2 health; L1 is always reachable.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2: %w", err)
	}
	return nil
}

func (c *TwoPhaseCache) Close() error {
	return errors.Join(c.local.Close(), c.remote.Close())
}

// Stats returns L1 statistics.
func (c *TwoPhaseCache) Stats() Stats {
	return c.local.Stats()
}

// NopCache never stores anything. Every lookup misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }

func (NopCache) GetComparison(context.Context, string) (*domain.ComparisonResult, error) {
	return nil, nil
}

func (NopCache) SetComparison(context.Context, string, *domain.ComparisonResult, time.Duration) error {
	return nil
}

func (NopCache) Ping(context.Context) error { return nil }

func (NopCache) Close() error { return nil }
