package repository

import (
	"context"
	"errors"

	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/pkg/cache"
)

// CacheKV stores local state in a pkg/cache backend. Keys never expire.
type CacheKV struct {
	c cache.Service
}

// NewCacheKV creates a KVStore over c.
func NewCacheKV(c cache.Service) drepo.KVStore {
	return &CacheKV{c: c}
}

func (s *CacheKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.c.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", drepo.ErrNotFound
	}
	return v, err
}

func (s *CacheKV) Set(ctx context.Context, key, value string) error {
	return s.c.Set(ctx, key, value, 0)
}

func (s *CacheKV) Delete(ctx context.Context, key string) error {
	return s.c.Delete(ctx, key)
}

func (s *CacheKV) Close() error {
	return s.c.Close()
}
