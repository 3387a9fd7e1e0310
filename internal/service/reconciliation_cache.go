package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/observability"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
)

const (
	dashboardCacheKey = "reconciliation:dashboard"
	debtorsCacheKey   = "reconciliation:debtors"
)

// cacheKey scopes a view to the calendar day it was computed for, so a
// cached month or forward window never outlives the day boundary.
func cacheKey(view string, today time.Time) string {
	return view + ":" + today.Format(dto.DateLayout)
}

// CacheInvalidator drops cached reconciliation views after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CachedReconciliationService is a ReconciliationService whose cached views can be dropped.
type CachedReconciliationService interface {
	ReconciliationService
	CacheInvalidator
}

type cachedReconciliationService struct {
	inner    ReconciliationService
	cache    *redis.Client
	ttl      time.Duration
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewCachedReconciliationService wraps inner with a Redis read-through cache for the
// dashboard and debtor views. A nil client disables caching.
func NewCachedReconciliationService(inner ReconciliationService, cache *redis.Client, ttl time.Duration, clock ClockConfig, logger zerolog.Logger) CachedReconciliationService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	location := clock.Location
	if location == nil {
		location = time.UTC
	}
	return &cachedReconciliationService{
		inner:    inner,
		cache:    cache,
		ttl:      ttl,
		location: location,
		now:      time.Now,
		logger:   logger.With().Str("component", "reconciliation_cache").Logger(),
	}
}

func (s *cachedReconciliationService) keys() (dashboard, debtors string) {
	today := s.now().In(s.location)
	return cacheKey(dashboardCacheKey, today), cacheKey(debtorsCacheKey, today)
}

func (s *cachedReconciliationService) Dashboard(ctx context.Context) (dto.DashboardResponse, error) {
	key, _ := s.keys()
	var cached dto.DashboardResponse
	if s.read(ctx, "dashboard", key, &cached) {
		cached.CacheHit = true
		return cached, nil
	}

	response, err := s.inner.Dashboard(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	s.write(ctx, key, response)
	return response, nil
}

func (s *cachedReconciliationService) Debtors(ctx context.Context) (dto.DebtorListResponse, error) {
	_, key := s.keys()
	var cached dto.DebtorListResponse
	if s.read(ctx, "debtors", key, &cached) {
		cached.CacheHit = true
		return cached, nil
	}

	response, err := s.inner.Debtors(ctx)
	if err != nil {
		return dto.DebtorListResponse{}, err
	}
	s.write(ctx, key, response)
	return response, nil
}

// Capacity and RecoverySlots take arbitrary windows and are not cached.
func (s *cachedReconciliationService) Capacity(ctx context.Context, window reconcile.Window) (dto.CapacityResponse, error) {
	return s.inner.Capacity(ctx, window)
}

func (s *cachedReconciliationService) RecoverySlots(ctx context.Context, window reconcile.Window) (dto.RecoverySlotsResponse, error) {
	return s.inner.RecoverySlots(ctx, window)
}

func (s *cachedReconciliationService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	// Earlier days are never read again and age out with the TTL.
	dashboard, debtors := s.keys()
	if err := s.cache.Del(ctx, dashboard, debtors).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate reconciliation cache")
		return err
	}
	return nil
}

func (s *cachedReconciliationService) read(ctx context.Context, view, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read reconciliation cache")
		}
		observability.ReconciliationCache().WithLabelValues(view, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(payload, target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable reconciliation cache entry")
		observability.ReconciliationCache().WithLabelValues(view, "miss").Inc()
		return false
	}
	observability.ReconciliationCache().WithLabelValues(view, "hit").Inc()
	return true
}

func (s *cachedReconciliationService) write(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store reconciliation cache")
	}
}
