package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
)

// DefaultCacheTTL bounds how stale a cached donor view may get before a read
// goes back to the ledger. Change events override it: freshness from events
// always wins over TTL staleness.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	view      *dto.DonorView
	storedAt  time.Time
	expiresAt time.Time
}

// donorCacheService is a per-subject read cache in front of donor ledger
// queries, refreshed by TTL expiry and overwritten by live change events.
type donorCacheService struct {
	BaseService
	donationRepo   portsrepo.DonationReader
	aggregationSvc portssvc.AggregationSvc
	eventSource    portsrepo.LedgerEventSource

	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	// generations invalidate in-flight refreshes: a refresh started before an
	// Invalidate/Clear observes a stale generation and its result is
	// discarded instead of resurrecting dropped data.
	generations map[string]uint64

	flight singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	expired     atomic.Int64
	evictions   atomic.Int64
	eventWrites atomic.Int64
}

// DonorCacheOption is a functional option for configuring the donor cache.
type DonorCacheOption func(*donorCacheService)

// WithCacheTTL overrides the default entry TTL.
func WithCacheTTL(ttl time.Duration) DonorCacheOption {
	return func(s *donorCacheService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheClock overrides the clock, for expiry tests.
func WithCacheClock(now func() time.Time) DonorCacheOption {
	return func(s *donorCacheService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDonorCacheService creates a new per-subject read cache.
func NewDonorCacheService(
	donationRepo portsrepo.DonationReader,
	aggregationSvc portssvc.AggregationSvc,
	eventSource portsrepo.LedgerEventSource,
	options ...DonorCacheOption,
) portssvc.DonorCacheSvc {
	svc := &donorCacheService{
		donationRepo:   donationRepo,
		aggregationSvc: aggregationSvc,
		eventSource:    eventSource,
		ttl:            DefaultCacheTTL,
		now:            time.Now,
		entries:        make(map[string]*cacheEntry),
		generations:    make(map[string]uint64),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.DonorCacheSvc = (*donorCacheService)(nil)

// GetDonorView returns the donor's donation list and personal summary from
// cache when fresh, refreshing from the ledger otherwise. Concurrent misses
// for one subject collapse into a single in-flight query.
func (s *donorCacheService) GetDonorView(ctx context.Context, donorID string) (*dto.DonorView, error) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.entries[donorID]
	s.mu.RUnlock()

	if ok {
		if now.Before(entry.expiresAt) {
			s.hits.Add(1)
			return entry.view, nil
		}
		s.expired.Add(1)
	} else {
		s.misses.Add(1)
	}

	view, err, _ := s.flight.Do(donorID, func() (interface{}, error) {
		return s.refresh(ctx, donorID)
	})
	if err != nil {
		return nil, err
	}
	return view.(*dto.DonorView), nil
}

// refresh queries the ledger and recomputes the personal summary, storing
// the result unless the entry's generation moved while the query was in
// flight (subject switch or explicit invalidation).
func (s *donorCacheService) refresh(ctx context.Context, donorID string) (*dto.DonorView, error) {
	s.mu.RLock()
	startGen := s.generations[donorID]
	s.mu.RUnlock()

	view, err := s.buildView(ctx, donorID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[donorID] == startGen {
		s.entries[donorID] = &cacheEntry{
			view:      view,
			storedAt:  view.FetchedAt,
			expiresAt: view.FetchedAt.Add(s.ttl),
		}
	} else {
		// The subject was invalidated mid-refresh; discard rather than
		// writing stale data into the fresh slot.
		s.LogDebug(ctx, "Discarding cache refresh for invalidated subject", "donor_id", donorID)
	}
	s.mu.Unlock()

	return view, nil
}

// buildView fetches the donor's donations and computes their year-to-date
// personal summary.
func (s *donorCacheService) buildView(ctx context.Context, donorID string) (*dto.DonorView, error) {
	donations, err := s.donationRepo.ListByDonor(ctx, donorID)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch donor donations for cache refresh", "donor_id", donorID)
		return nil, fmt.Errorf("failed to fetch donor donations: %w", err)
	}

	now := s.now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	summary, err := s.aggregationSvc.ComputeSummary(ctx, donations, yearStart, now, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compute personal summary: %w", err)
	}

	return &dto.DonorView{
		DonorID:   donorID,
		Donations: donations,
		Summary:   summary,
		FetchedAt: now,
	}, nil
}

// Invalidate drops the cache entry for a subject and bumps its generation so
// any in-flight refresh result is discarded.
func (s *donorCacheService) Invalidate(donorID string) {
	s.mu.Lock()
	if _, ok := s.entries[donorID]; ok {
		delete(s.entries, donorID)
		s.evictions.Add(1)
	}
	s.generations[donorID]++
	s.mu.Unlock()
}

// Clear drops every cache entry. Called on logout and subject switch so no
// data survives across subjects.
func (s *donorCacheService) Clear() {
	s.mu.Lock()
	for donorID := range s.entries {
		s.generations[donorID]++
		s.evictions.Add(1)
	}
	s.entries = make(map[string]*cacheEntry)
	s.mu.Unlock()
}

// Watch consumes the subject's ledger event stream and overwrites the cache
// entry on every matching event, regardless of remaining TTL. Returns when
// ctx is cancelled or the stream closes.
func (s *donorCacheService) Watch(ctx context.Context, donorID string) error {
	events, err := s.eventSource.SubscribeDonor(ctx, donorID)
	if err != nil {
		s.LogError(ctx, err, "Failed to subscribe to ledger events", "donor_id", donorID)
		return fmt.Errorf("failed to subscribe to ledger events: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, open := <-events:
			if !open {
				return nil
			}
			if event.DonorID == nil || *event.DonorID != donorID {
				continue
			}
			if _, err := s.refresh(ctx, donorID); err != nil {
				s.LogWarn(ctx, "Cache overwrite from ledger event failed; entry invalidated instead",
					"donor_id", donorID, "kind", string(event.Kind), "error", err.Error())
				s.Invalidate(donorID)
				continue
			}
			s.eventWrites.Add(1)
			s.LogDebug(ctx, "Cache entry overwritten from ledger event",
				"donor_id", donorID, "kind", string(event.Kind), "sequence", event.Sequence)
		}
	}
}

// Stats reports cache counters and entry ages for operational diagnosis.
func (s *donorCacheService) Stats() dto.CacheStats {
	stats := dto.CacheStats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Expired:     s.expired.Load(),
		Evictions:   s.evictions.Load(),
		EventWrites: s.eventWrites.Load(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	stats.Entries = len(s.entries)
	for _, entry := range s.entries {
		storedAt := entry.storedAt
		if stats.OldestEntry == nil || storedAt.Before(*stats.OldestEntry) {
			t := storedAt
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || storedAt.After(*stats.NewestEntry) {
			t := storedAt
			stats.NewestEntry = &t
		}
	}
	return stats
}
