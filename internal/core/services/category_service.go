package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/faithledger/donation_engine/internal/utils/currency"
)

// categoryService provides category metadata operations and is the sole
// writer of category running statistics.
type categoryService struct {
	BaseService
	categoryRepo  portsrepo.CategoryRepositoryFacade
	donationRepo  portsrepo.DonationReader
	complianceSvc portssvc.ComplianceSvc

	// Per-category locks make statistics updates linearizable: two concurrent
	// verifications in one category serialize here, while updates to
	// different categories proceed in parallel.
	locks sync.Map // categoryID -> *sync.Mutex

	// Event sequences already applied per category, guarded by the same
	// per-category lock. A sequence present here is a replay from the event
	// log and is skipped; distinct sequences arriving concurrently each
	// apply exactly once regardless of arrival order.
	appliedSeq sync.Map // categoryID -> map[int64]struct{}

	now func() time.Time
}

// CategoryServiceOption is a functional option for configuring the category
// service.
type CategoryServiceOption func(*categoryService)

// WithCategoryClock overrides the clock, for tests exercising year
// boundaries.
func WithCategoryClock(now func() time.Time) CategoryServiceOption {
	return func(s *categoryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCategoryService creates a new category service.
func NewCategoryService(
	categoryRepo portsrepo.CategoryRepositoryFacade,
	donationRepo portsrepo.DonationReader,
	complianceSvc portssvc.ComplianceSvc,
	options ...CategoryServiceOption,
) portssvc.CategorySvcFacade {
	svc := &categoryService{
		categoryRepo:  categoryRepo,
		donationRepo:  donationRepo,
		complianceSvc: complianceSvc,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CategorySvcFacade = (*categoryService)(nil)

func (s *categoryService) lockFor(categoryID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(categoryID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// appliedSequences returns the category's applied-sequence set. Callers must
// hold the category lock.
func (s *categoryService) appliedSequences(categoryID string) map[int64]struct{} {
	v, _ := s.appliedSeq.LoadOrStore(categoryID, map[int64]struct{}{})
	return v.(map[int64]struct{})
}

// CreateCategory validates and persists a new reporting category.
func (s *categoryService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest, creatorUserID string) (*domain.Category, error) {
	now := s.now()

	category := domain.Category{
		CategoryID:      uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		DefaultLineItem: req.DefaultLineItem,
		IsTaxDeductible: req.IsTaxDeductible,
		IsActive:        true,
		DisplayOrder:    req.DisplayOrder,
		Statistics:      domain.ZeroStatistics(),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.validateCategory(ctx, &category, nil); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.SaveCategory(ctx, category); err != nil {
		s.LogError(ctx, err, "Failed to save category", "name", req.Name)
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	s.LogInfo(ctx, "Category created", "category_id", category.CategoryID, "name", category.Name)
	return &category, nil
}

// GetCategoryByID retrieves a category by its identifier.
func (s *categoryService) GetCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	category, err := s.categoryRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find category", "category_id", categoryID)
		}
		return nil, fmt.Errorf("failed to find category %s: %w", categoryID, err)
	}
	return category, nil
}

// ListCategories retrieves categories ordered by display order.
func (s *categoryService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	categories, err := s.categoryRepo.ListCategories(ctx, activeOnly)
	if err != nil {
		s.LogError(ctx, err, "Failed to list categories")
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory updates category metadata. Statistics fields are owned by
// the updater and never writable through this path.
func (s *categoryService) UpdateCategory(ctx context.Context, categoryID string, req dto.UpdateCategoryRequest, updaterUserID string) (*domain.Category, error) {
	category, err := s.categoryRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find category %s: %w", categoryID, err)
	}

	updated := false
	if req.Name != nil {
		category.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		category.Description = *req.Description
		updated = true
	}
	if req.DefaultLineItem != nil {
		category.DefaultLineItem = *req.DefaultLineItem
		updated = true
	}
	if req.IsTaxDeductible != nil {
		category.IsTaxDeductible = *req.IsTaxDeductible
		updated = true
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
		updated = true
	}
	if !updated {
		return category, nil
	}

	if err := s.validateCategory(ctx, category, &categoryID); err != nil {
		return nil, err
	}

	category.LastUpdatedAt = s.now()
	category.LastUpdatedBy = updaterUserID

	if err := s.categoryRepo.UpdateCategory(ctx, *category); err != nil {
		s.LogError(ctx, err, "Failed to update category", "category_id", categoryID)
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.LogInfo(ctx, "Category updated", "category_id", categoryID)
	return category, nil
}

// DeactivateCategory soft-disables a category, hiding it from new-donation
// pickers. Categories referenced by any donation are never deleted.
func (s *categoryService) DeactivateCategory(ctx context.Context, categoryID string, userID string) error {
	category, err := s.categoryRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to find category %s: %w", categoryID, err)
	}
	if !category.IsActive {
		return nil
	}

	category.IsActive = false
	category.LastUpdatedAt = s.now()
	category.LastUpdatedBy = userID

	if err := s.categoryRepo.UpdateCategory(ctx, *category); err != nil {
		s.LogError(ctx, err, "Failed to deactivate category", "category_id", categoryID)
		return fmt.Errorf("failed to deactivate category: %w", err)
	}

	s.LogInfo(ctx, "Category deactivated", "category_id", categoryID)
	return nil
}

// DeleteCategory permanently removes a category when no donation has ever
// referenced it. Referenced categories keep their audit trail and can only
// be deactivated.
func (s *categoryService) DeleteCategory(ctx context.Context, categoryID string, userID string) error {
	count, err := s.categoryRepo.CountDonationsForCategory(ctx, categoryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count donation references", "category_id", categoryID)
		return fmt.Errorf("failed to count donation references: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("category %s is referenced by %d donations and can only be deactivated: %w",
			categoryID, count, apperrors.ErrConflict)
	}

	// The repository re-checks the count inside its transaction; this guard
	// just gives a clean error before touching the row.
	if err := s.categoryRepo.DeleteCategory(ctx, categoryID); err != nil {
		s.LogError(ctx, err, "Failed to delete category", "category_id", categoryID)
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.LogInfo(ctx, "Category deleted", "category_id", categoryID, "deleted_by", userID)
	return nil
}

// ApplyDonationEvent applies one ledger event to the referenced category's
// running totals under the per-category lock. Each sequence applies exactly
// once; replays of an already-applied sequence are no-ops.
func (s *categoryService) ApplyDonationEvent(ctx context.Context, event domain.LedgerEvent) (*domain.CategoryStatistics, error) {
	switch event.Kind {
	case domain.EventDonationVerified, domain.EventDonationVoided, domain.EventDonationRefunded:
	default:
		// Creates and plain updates do not move verified totals.
		category, err := s.categoryRepo.FindCategoryByID(ctx, event.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category %s: %w", event.CategoryID, err)
		}
		return &category.Statistics, nil
	}

	lock := s.lockFor(event.CategoryID)
	lock.Lock()
	defer lock.Unlock()

	applied := s.appliedSequences(event.CategoryID)
	if _, seen := applied[event.Sequence]; seen {
		s.LogDebug(ctx, "Skipping replayed ledger event", "category_id", event.CategoryID, "sequence", event.Sequence)
		category, err := s.categoryRepo.FindCategoryByID(ctx, event.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category %s: %w", event.CategoryID, err)
		}
		return &category.Statistics, nil
	}

	donation, err := s.donationRepo.FindDonationByID(ctx, event.DonationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation %s for event: %w", event.DonationID, err)
	}
	category, err := s.categoryRepo.FindCategoryByID(ctx, event.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find category %s: %w", event.CategoryID, err)
	}

	stats := category.Statistics
	currentYear := s.now().Year()

	switch event.Kind {
	case domain.EventDonationVerified:
		stats.TotalAmount = stats.TotalAmount.Add(donation.Amount)
		stats.DonationCount++
		if donation.TaxYear == currentYear {
			stats.CurrentYearTotal = stats.CurrentYearTotal.Add(donation.Amount)
		} else if donation.TaxYear == currentYear-1 {
			stats.LastYearTotal = stats.LastYearTotal.Add(donation.Amount)
		}
		if stats.LastDonationDate == nil || donation.DonationDate.After(*stats.LastDonationDate) {
			d := donation.DonationDate
			stats.LastDonationDate = &d
		}
	case domain.EventDonationVoided, domain.EventDonationRefunded:
		stats.TotalAmount = stats.TotalAmount.Sub(donation.Amount)
		if stats.DonationCount > 0 {
			stats.DonationCount--
		}
		if donation.TaxYear == currentYear {
			stats.CurrentYearTotal = stats.CurrentYearTotal.Sub(donation.Amount)
		} else if donation.TaxYear == currentYear-1 {
			stats.LastYearTotal = stats.LastYearTotal.Sub(donation.Amount)
		}
		// LastDonationDate is left as-is; a reversal does not rewind it.
		// Recalculate restores it exactly when needed.
	}

	// The average is always recomputed from the totals, never
	// drift-accumulated.
	stats.AverageDonation = currency.SafeAverage(stats.TotalAmount, stats.DonationCount)

	if err := s.categoryRepo.UpdateCategoryStatistics(ctx, event.CategoryID, stats, "statistics-updater"); err != nil {
		s.LogError(ctx, err, "Failed to persist category statistics", "category_id", event.CategoryID)
		return nil, fmt.Errorf("failed to persist category statistics: %w", err)
	}
	applied[event.Sequence] = struct{}{}

	s.LogInfo(ctx, "Category statistics updated",
		"category_id", event.CategoryID,
		"kind", string(event.Kind),
		"total", stats.TotalAmount.String(),
		"count", stats.DonationCount)
	return &stats, nil
}

// Recalculate recomputes a category's running totals from the authoritative
// set of verified donations. When the stored incremental totals disagree
// beyond one minimum currency unit, the drift is surfaced as a
// ConsistencyError reconciliation alert and the stored totals are left
// untouched; the recalculated statistics are still returned for inspection.
func (s *categoryService) Recalculate(ctx context.Context, categoryID string) (*domain.CategoryStatistics, error) {
	lock := s.lockFor(categoryID)
	lock.Lock()
	defer lock.Unlock()

	category, err := s.categoryRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find category %s: %w", categoryID, err)
	}

	donations, err := s.donationRepo.ListVerifiedByCategory(ctx, categoryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list verified donations for recalculation", "category_id", categoryID)
		return nil, fmt.Errorf("failed to retrieve verified donations: %w", err)
	}

	stats := recomputeStatistics(donations, s.now().Year())

	if statisticsDrifted(category.Statistics, stats) || !statisticsInvariantHolds(category.Statistics) {
		consistencyErr := &apperrors.ConsistencyError{
			CategoryID:   categoryID,
			Incremental:  category.Statistics.TotalAmount,
			Recalculated: stats.TotalAmount,
		}
		s.LogError(ctx, consistencyErr, "Category statistics reconciliation alert",
			"category_id", categoryID,
			"incremental_count", category.Statistics.DonationCount,
			"recalculated_count", stats.DonationCount)
		return &stats, consistencyErr
	}

	if err := s.categoryRepo.UpdateCategoryStatistics(ctx, categoryID, stats, "reconciliation"); err != nil {
		return nil, fmt.Errorf("failed to persist recalculated statistics: %w", err)
	}

	s.LogInfo(ctx, "Category statistics recalculated",
		"category_id", categoryID,
		"total", stats.TotalAmount.String(),
		"count", stats.DonationCount)
	return &stats, nil
}

// recomputeStatistics builds running totals from scratch over a verified
// donation set. Deterministic for any input order, so incremental and
// recalculated paths agree exactly.
func recomputeStatistics(donations []domain.Donation, currentYear int) domain.CategoryStatistics {
	stats := domain.ZeroStatistics()

	for i := range donations {
		d := &donations[i]
		if !d.CountsTowardTotals() {
			continue
		}
		stats.TotalAmount = stats.TotalAmount.Add(d.Amount)
		stats.DonationCount++
		if d.TaxYear == currentYear {
			stats.CurrentYearTotal = stats.CurrentYearTotal.Add(d.Amount)
		} else if d.TaxYear == currentYear-1 {
			stats.LastYearTotal = stats.LastYearTotal.Add(d.Amount)
		}
		if stats.LastDonationDate == nil || d.DonationDate.After(*stats.LastDonationDate) {
			date := d.DonationDate
			stats.LastDonationDate = &date
		}
	}

	stats.AverageDonation = currency.SafeAverage(stats.TotalAmount, stats.DonationCount)
	return stats
}

// validateCategory enforces category invariants: taxonomy coherence, name
// uniqueness and display-order uniqueness among active categories.
func (s *categoryService) validateCategory(ctx context.Context, category *domain.Category, excludeID *string) error {
	if category.Name == "" || len(category.Name) > 100 {
		return apperrors.NewValidationError("name", "category name must be 1-100 characters")
	}
	if category.DisplayOrder <= 0 {
		return apperrors.NewValidationError("displayOrder", "display order must be a positive integer")
	}
	if err := s.complianceSvc.ValidateCategoryTaxonomy(*category); err != nil {
		return err
	}

	existing, err := s.categoryRepo.FindCategoryByName(ctx, category.Name)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check category name uniqueness: %w", err)
	}
	if existing != nil && (excludeID == nil || existing.CategoryID != *excludeID) {
		return fmt.Errorf("%w: category name %q", apperrors.ErrDuplicate, category.Name)
	}

	if category.IsActive {
		actives, err := s.categoryRepo.ListCategories(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to check display order uniqueness: %w", err)
		}
		for _, other := range actives {
			if excludeID != nil && other.CategoryID == *excludeID {
				continue
			}
			if other.CategoryID != category.CategoryID && other.DisplayOrder == category.DisplayOrder {
				return apperrors.NewValidationError("displayOrder",
					fmt.Sprintf("display order %d is already used by category %q", category.DisplayOrder, other.Name))
			}
		}
	}
	return nil
}

// statisticsDrifted reports whether any stored incremental field disagrees
// with the recalculated value beyond one minimum currency unit. Every field
// is compared: a correct grand total can still hide a drifted year bucket or
// a stale average.
func statisticsDrifted(stored, recalculated domain.CategoryStatistics) bool {
	return !currency.WithinTolerance(stored.TotalAmount, recalculated.TotalAmount) ||
		stored.DonationCount != recalculated.DonationCount ||
		!currency.WithinTolerance(stored.AverageDonation, recalculated.AverageDonation) ||
		!currency.WithinTolerance(stored.CurrentYearTotal, recalculated.CurrentYearTotal) ||
		!currency.WithinTolerance(stored.LastYearTotal, recalculated.LastYearTotal)
}

// statisticsInvariantHolds reports whether average*count equals the total to
// within one minimum currency unit. Exposed for reconciliation checks.
func statisticsInvariantHolds(stats domain.CategoryStatistics) bool {
	if stats.DonationCount == 0 {
		return stats.TotalAmount.IsZero()
	}
	product := stats.AverageDonation.Mul(decimal.NewFromInt(stats.DonationCount))
	// The rounded average can be off by up to half a unit per donation.
	tolerance := currency.MinUnit.Mul(decimal.NewFromInt(stats.DonationCount))
	return product.Sub(stats.TotalAmount).Abs().LessThanOrEqual(tolerance)
}
