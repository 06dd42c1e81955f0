package services

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/dto"
)

// CategoryReaderSvc defines read operations for categories.
type CategoryReaderSvc interface {
	// GetCategoryByID retrieves a specific category by its ID.
	GetCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error)

	// ListCategories retrieves categories ordered by display order.
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)
}

// CategoryWriterSvc defines write operations for category metadata.
type CategoryWriterSvc interface {
	// CreateCategory validates and persists a new category.
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest, creatorUserID string) (*domain.Category, error)

	// UpdateCategory updates category metadata. Running statistics are never
	// writable through this path.
	UpdateCategory(ctx context.Context, categoryID string, req dto.UpdateCategoryRequest, updaterUserID string) (*domain.Category, error)

	// DeactivateCategory soft-disables a category. Categories referenced by
	// donations are never deleted.
	DeactivateCategory(ctx context.Context, categoryID string, userID string) error

	// DeleteCategory permanently removes a category that no donation has ever
	// referenced. Referenced categories return ErrConflict and must be
	// deactivated instead.
	DeleteCategory(ctx context.Context, categoryID string, userID string) error
}

// CategoryStatsSvc is the statistics updater: the only writer of category
// running statistics.
type CategoryStatsSvc interface {
	// ApplyDonationEvent applies one ledger event to the referenced category's
	// running totals. Idempotent over a monotonically ordered event log;
	// per-category application is linearizable.
	ApplyDonationEvent(ctx context.Context, event domain.LedgerEvent) (*domain.CategoryStatistics, error)

	// Recalculate recomputes a category's running totals from its full set of
	// verified donations and compares them with the incremental totals.
	// Disagreement beyond one minimum currency unit surfaces as a
	// ConsistencyError reconciliation alert.
	Recalculate(ctx context.Context, categoryID string) (*domain.CategoryStatistics, error)
}

// CategorySvcFacade combines all category service interfaces.
type CategorySvcFacade interface {
	CategoryReaderSvc
	CategoryWriterSvc
	CategoryStatsSvc
}
