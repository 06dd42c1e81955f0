package dto

import (
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// DonorView is the cached per-subject read: the donor's donation list plus
// their personal summary, stamped with when it was fetched.
type DonorView struct {
	DonorID   string                   `json:"donorID"`
	Donations []domain.Donation        `json:"donations"`
	Summary   *domain.FinancialSummary `json:"summary"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

// CacheStats exposes cache counters for operational diagnosis.
type CacheStats struct {
	Hits        int64      `json:"hits"`
	Misses      int64      `json:"misses"`
	Expired     int64      `json:"expired"`
	Evictions   int64      `json:"evictions"`
	EventWrites int64      `json:"eventWrites"`
	Entries     int        `json:"entries"`
	OldestEntry *time.Time `json:"oldestEntry,omitempty"`
	NewestEntry *time.Time `json:"newestEntry,omitempty"`
}
