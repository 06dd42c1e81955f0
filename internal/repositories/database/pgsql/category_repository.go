package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	"github.com/faithledger/donation_engine/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCategoryRepository struct {
	BaseRepository
}

// newPgxCategoryRepository creates a new repository for category data.
func newPgxCategoryRepository(pool *pgxpool.Pool) portsrepo.CategoryRepositoryFacade {
	return &PgxCategoryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxCategoryRepository implements portsrepo.CategoryRepositoryFacade
var _ portsrepo.CategoryRepositoryFacade = (*PgxCategoryRepository)(nil)

// Helper to convert domain.Category to models.Category for DB storage
func toModelCategory(d domain.Category) models.Category {
	return models.Category{
		CategoryID:       d.CategoryID,
		Name:             d.Name,
		Description:      d.Description,
		DefaultLineItem:  string(d.DefaultLineItem),
		IsTaxDeductible:  d.IsTaxDeductible,
		IsActive:         d.IsActive,
		DisplayOrder:     d.DisplayOrder,
		TotalAmount:      d.Statistics.TotalAmount,
		DonationCount:    d.Statistics.DonationCount,
		AverageDonation:  d.Statistics.AverageDonation,
		CurrentYearTotal: d.Statistics.CurrentYearTotal,
		LastYearTotal:    d.Statistics.LastYearTotal,
		LastDonationDate: d.Statistics.LastDonationDate,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

// Helper to convert models.Category from DB to domain.Category
func toDomainCategory(m models.Category) domain.Category {
	return domain.Category{
		CategoryID:      m.CategoryID,
		Name:            m.Name,
		Description:     m.Description,
		DefaultLineItem: domain.LineItem(m.DefaultLineItem),
		IsTaxDeductible: m.IsTaxDeductible,
		IsActive:        m.IsActive,
		DisplayOrder:    m.DisplayOrder,
		Statistics: domain.CategoryStatistics{
			TotalAmount:      m.TotalAmount,
			DonationCount:    m.DonationCount,
			AverageDonation:  m.AverageDonation,
			CurrentYearTotal: m.CurrentYearTotal,
			LastYearTotal:    m.LastYearTotal,
			LastDonationDate: m.LastDonationDate,
		},
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

const categoryColumns = `
	category_id, name, description, default_line_item, is_tax_deductible,
	is_active, display_order, total_amount, donation_count, average_donation,
	current_year_total, last_year_total, last_donation_date,
	created_at, created_by, last_updated_at, last_updated_by`

func scanCategory(row pgx.Row) (models.Category, error) {
	var m models.Category
	err := row.Scan(
		&m.CategoryID,
		&m.Name,
		&m.Description,
		&m.DefaultLineItem,
		&m.IsTaxDeductible,
		&m.IsActive,
		&m.DisplayOrder,
		&m.TotalAmount,
		&m.DonationCount,
		&m.AverageDonation,
		&m.CurrentYearTotal,
		&m.LastYearTotal,
		&m.LastDonationDate,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveCategory persists a new category.
func (r *PgxCategoryRepository) SaveCategory(ctx context.Context, category domain.Category) error {
	m := toModelCategory(category)
	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.CategoryID, m.Name, m.Description, m.DefaultLineItem, m.IsTaxDeductible,
		m.IsActive, m.DisplayOrder, m.TotalAmount, m.DonationCount, m.AverageDonation,
		m.CurrentYearTotal, m.LastYearTotal, m.LastDonationDate,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation (name or display_order)
			return fmt.Errorf("category %s conflicts with an existing category: %w", m.Name, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert category %s: %w", m.CategoryID, err)
	}
	return nil
}

// UpdateCategory persists changes to category metadata. Statistics columns are
// deliberately excluded; only UpdateCategoryStatistics touches those.
func (r *PgxCategoryRepository) UpdateCategory(ctx context.Context, category domain.Category) error {
	m := toModelCategory(category)
	query := `
		UPDATE categories SET
			name = $2, description = $3, default_line_item = $4, is_tax_deductible = $5,
			is_active = $6, display_order = $7, last_updated_at = $8, last_updated_by = $9
		WHERE category_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.CategoryID, m.Name, m.Description, m.DefaultLineItem, m.IsTaxDeductible,
		m.IsActive, m.DisplayOrder, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("category %s conflicts with an existing category: %w", m.Name, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to update category %s: %w", m.CategoryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateCategoryStatistics persists the running statistics for a category.
func (r *PgxCategoryRepository) UpdateCategoryStatistics(ctx context.Context, categoryID string, stats domain.CategoryStatistics, updatedBy string) error {
	query := `
		UPDATE categories SET
			total_amount = $2, donation_count = $3, average_donation = $4,
			current_year_total = $5, last_year_total = $6, last_donation_date = $7,
			last_updated_at = NOW(), last_updated_by = $8
		WHERE category_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		categoryID, stats.TotalAmount, stats.DonationCount, stats.AverageDonation,
		stats.CurrentYearTotal, stats.LastYearTotal, stats.LastDonationDate, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update statistics for category %s: %w", categoryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category that no donation references. The count
// check and the delete run in one transaction so a donation inserted between
// them cannot orphan its category reference.
func (r *PgxCategoryRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	var count int64
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM donations WHERE category_id = $1;`, categoryID).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count donations for category %s: %w", categoryID, err)
	}
	if count > 0 {
		return fmt.Errorf("category %s is referenced by %d donations: %w", categoryID, count, apperrors.ErrConflict)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM categories WHERE category_id = $1;`, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", categoryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

// FindCategoryByID retrieves a specific category by its unique identifier.
func (r *PgxCategoryRepository) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE category_id = $1;`
	m, err := scanCategory(r.Pool.QueryRow(ctx, query, categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID %s: %w", categoryID, err)
	}
	c := toDomainCategory(m)
	return &c, nil
}

// FindCategoryByName retrieves a category by its unique name.
func (r *PgxCategoryRepository) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = $1;`
	m, err := scanCategory(r.Pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find category by name %s: %w", name, err)
	}
	c := toDomainCategory(m)
	return &c, nil
}

// ListCategories retrieves categories ordered by display order.
func (r *PgxCategoryRepository) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY display_order, name;`

	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, toDomainCategory(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}

// CountDonationsForCategory reports how many donations reference a category,
// regardless of status.
func (r *PgxCategoryRepository) CountDonationsForCategory(ctx context.Context, categoryID string) (int64, error) {
	var count int64
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM donations WHERE category_id = $1;`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donations for category %s: %w", categoryID, err)
	}
	return count, nil
}
