package services

import (
	"context"

	"github.com/faithledger/donation_engine/internal/dto"
)

// DonorCacheSvc is the per-subject read cache in front of donor queries.
type DonorCacheSvc interface {
	// GetDonorView returns the donor's donation list and personal summary,
	// served from cache within TTL or refreshed from the ledger on miss or
	// expiry. Concurrent refreshes for one subject are collapsed into a
	// single in-flight query.
	GetDonorView(ctx context.Context, donorID string) (*dto.DonorView, error)

	// Invalidate drops the cache entry for one subject.
	Invalidate(donorID string)

	// Clear drops every cache entry. Called on logout and subject switch so
	// no data leaks across subjects.
	Clear()

	// Watch subscribes to ledger change events for the subject and overwrites
	// the cache entry immediately on any matching event, regardless of
	// remaining TTL. Returns when ctx is cancelled.
	Watch(ctx context.Context, donorID string) error

	// Stats reports hit/miss/expiry counters and entry ages for diagnosis.
	Stats() dto.CacheStats
}
