package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
)

// CachedHospitalAdapter wraps a HospitalRepository with read-through caching
type CachedHospitalAdapter struct {
	adapter repositories.HospitalRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedHospitalAdapter creates a new cached hospital adapter. ttlSeconds
// applies to both single hospitals and the full list.
func NewCachedHospitalAdapter(adapter repositories.HospitalRepository, cache providers.CacheProvider, ttlSeconds int) repositories.HospitalRepository {
	return &CachedHospitalAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
	}
}

const hospitalsListCacheKey = "hospitals:list"

func hospitalCacheKey(id string) string {
	return fmt.Sprintf("hospital:%s", id)
}

// GetByID retrieves a hospital by ID with caching
func (a *CachedHospitalAdapter) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	cacheKey := hospitalCacheKey(id)

	var hospital entities.Hospital
	if a.load(ctx, cacheKey, &hospital) {
		return &hospital, nil
	}

	fresh, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, cacheKey, fresh)
	return fresh, nil
}

// List retrieves all hospitals with caching
func (a *CachedHospitalAdapter) List(ctx context.Context) ([]*entities.Hospital, error) {
	var hospitals []*entities.Hospital
	if a.load(ctx, hospitalsListCacheKey, &hospitals) {
		return hospitals, nil
	}

	hospitals, err := a.adapter.List(ctx)
	if err != nil {
		return nil, err
	}
	a.store(ctx, hospitalsListCacheKey, hospitals)
	return hospitals, nil
}

// Create creates a hospital and drops the cached list
func (a *CachedHospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) error {
	if err := a.adapter.Create(ctx, hospital); err != nil {
		return err
	}
	a.invalidate(ctx, hospitalsListCacheKey)
	return nil
}

// Update updates a hospital and drops its cache entries
func (a *CachedHospitalAdapter) Update(ctx context.Context, hospital *entities.Hospital) error {
	if err := a.adapter.Update(ctx, hospital); err != nil {
		return err
	}
	a.invalidate(ctx, hospitalCacheKey(hospital.ID), hospitalsListCacheKey)
	return nil
}

func (a *CachedHospitalAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("hospital cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached hospital data")
		return false
	}
	return true
}

func (a *CachedHospitalAdapter) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache hospital data")
	}
}

func (a *CachedHospitalAdapter) invalidate(ctx context.Context, keys ...string) {
	if err := a.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate hospital cache")
	}
}
