package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
)

// ContainerConfig carries the policy knobs services need at construction.
type ContainerConfig struct {
	AmountCeiling           decimal.Decimal
	AllowInactiveCategories bool
	ZeroPreviousPolicy      ZeroPreviousPolicy
	CacheTTL                time.Duration
	ExportFields            map[domain.AccessRole][]string
}

// NewContainer wires every service with its dependencies.
func NewContainer(repos *portsrepo.RepositoryProvider, cfg ContainerConfig) *portssvc.Provider {
	compliance := NewComplianceService(repos.CategoryRepo)

	category := NewCategoryService(repos.CategoryRepo, repos.DonationRepo, compliance)

	aggregation := NewAggregationService(repos.DonationRepo, repos.CategoryRepo, compliance,
		WithZeroPreviousPolicy(cfg.ZeroPreviousPolicy))

	donation := NewDonationService(repos.DonationRepo, repos.CategoryRepo, compliance, category,
		WithAmountCeiling(cfg.AmountCeiling),
		WithInactiveCategoryDonations(cfg.AllowInactiveCategories),
		WithEventPublisher(repos.EventSink))

	sanitizer := NewSanitizerService(cfg.ExportFields)

	cache := NewDonorCacheService(repos.DonationRepo, aggregation, repos.EventSource,
		WithCacheTTL(cfg.CacheTTL))

	return &portssvc.Provider{
		Donation:    donation,
		Category:    category,
		Aggregation: aggregation,
		Compliance:  compliance,
		Sanitizer:   sanitizer,
		DonorCache:  cache,
	}
}
