package repositories

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// CategoryReader defines read operations for category data.
type CategoryReader interface {
	// FindCategoryByID retrieves a specific category by its unique identifier.
	FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error)

	// FindCategoryByName retrieves a category by its unique name.
	FindCategoryByName(ctx context.Context, name string) (*domain.Category, error)

	// ListCategories retrieves categories, optionally restricted to active ones,
	// ordered by display order.
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)

	// CountDonationsForCategory reports how many donations reference a category,
	// regardless of status. Guards deletion of referenced categories.
	CountDonationsForCategory(ctx context.Context, categoryID string) (int64, error)
}

// CategoryWriter defines write operations for category data.
type CategoryWriter interface {
	// SaveCategory persists a new category.
	SaveCategory(ctx context.Context, category domain.Category) error

	// UpdateCategory persists changes to category metadata (not statistics).
	UpdateCategory(ctx context.Context, category domain.Category) error

	// UpdateCategoryStatistics persists the running statistics for a category.
	// Only the statistics updater calls this.
	UpdateCategoryStatistics(ctx context.Context, categoryID string, stats domain.CategoryStatistics, updatedBy string) error

	// DeleteCategory removes a category that no donation references. Returns
	// ErrConflict when any donation still points at it; such categories can
	// only be deactivated.
	DeleteCategory(ctx context.Context, categoryID string) error
}

// CategoryRepositoryFacade combines all category repository interfaces.
type CategoryRepositoryFacade interface {
	CategoryReader
	CategoryWriter
}
