package repositories

import (
	"context"
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// DonationListFilter narrows donation list queries.
type DonationListFilter struct {
	CategoryID  *string
	DonorID     *string
	Status      *domain.DonationStatus
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// DonationReader defines read operations for the donation ledger.
type DonationReader interface {
	// FindDonationByID retrieves a specific donation by its unique identifier.
	FindDonationByID(ctx context.Context, donationID string) (*domain.Donation, error)

	// ListDonations retrieves a filtered, token-paginated list of donations.
	// It returns the donations, a token for the next page, and an error.
	ListDonations(ctx context.Context, filter DonationListFilter, limit int, nextToken *string) ([]domain.Donation, *string, error)

	// ListVerifiedByCategory retrieves every verified donation referencing a
	// category. Used by the recalculation path, which must see the full
	// authoritative set.
	ListVerifiedByCategory(ctx context.Context, categoryID string) ([]domain.Donation, error)

	// ListByDonor retrieves every donation attributed to a donor.
	ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error)
}

// DonationWriter defines write operations for the donation ledger.
type DonationWriter interface {
	// SaveDonation persists a new donation record.
	SaveDonation(ctx context.Context, donation domain.Donation) error

	// UpdateDonation persists changes to an existing donation record.
	UpdateDonation(ctx context.Context, donation domain.Donation) error
}

// DonationRepositoryFacade combines all donation repository interfaces.
type DonationRepositoryFacade interface {
	DonationReader
	DonationWriter
}
