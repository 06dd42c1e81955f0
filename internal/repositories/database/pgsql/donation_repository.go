package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	"github.com/faithledger/donation_engine/internal/models"
	"github.com/faithledger/donation_engine/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxDonationRepository struct {
	BaseRepository
}

// newPgxDonationRepository creates a new repository for donation ledger data.
func newPgxDonationRepository(pool *pgxpool.Pool) portsrepo.DonationRepositoryFacade {
	return &PgxDonationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxDonationRepository implements portsrepo.DonationRepositoryFacade
var _ portsrepo.DonationRepositoryFacade = (*PgxDonationRepository)(nil)

// Helper to convert domain.Donation to models.Donation for DB storage
func toModelDonation(d domain.Donation) models.Donation {
	return models.Donation{
		DonationID:         d.DonationID,
		Amount:             d.Amount,
		DonationDate:       d.DonationDate,
		Method:             string(d.Method),
		CategoryID:         d.CategoryID,
		CategoryName:       d.CategoryName,
		LineItem:           string(d.Compliance.LineItem),
		IsQuidProQuo:       d.Compliance.IsQuidProQuo,
		QuidProQuoValue:    d.Compliance.QuidProQuoValue,
		QuidProQuoDesc:     d.Compliance.QuidProQuoDesc,
		IsAnonymous:        d.Compliance.IsAnonymous,
		RestrictionType:    string(d.Compliance.RestrictionType),
		FairMarketValue:    d.Compliance.FairMarketValue,
		DonorProvidedValue: d.Compliance.DonorProvidedValue,
		DonorID:            d.DonorID,
		DonorName:          d.DonorName,
		TaxYear:            d.TaxYear,
		Status:             string(d.Status),
		Notes:              d.Notes,
		IsReceiptSent:      d.IsReceiptSent,
		VerifiedAt:         d.VerifiedAt,
		VerifiedBy:         d.VerifiedBy,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

// Helper to convert models.Donation from DB to domain.Donation
func toDomainDonation(m models.Donation) domain.Donation {
	return domain.Donation{
		DonationID:   m.DonationID,
		Amount:       m.Amount,
		DonationDate: m.DonationDate,
		Method:       domain.DonationMethod(m.Method),
		CategoryID:   m.CategoryID,
		CategoryName: m.CategoryName,
		Compliance: domain.ComplianceFields{
			LineItem:           domain.LineItem(m.LineItem),
			IsQuidProQuo:       m.IsQuidProQuo,
			QuidProQuoValue:    m.QuidProQuoValue,
			QuidProQuoDesc:     m.QuidProQuoDesc,
			IsAnonymous:        m.IsAnonymous,
			RestrictionType:    domain.RestrictionType(m.RestrictionType),
			FairMarketValue:    m.FairMarketValue,
			DonorProvidedValue: m.DonorProvidedValue,
		},
		DonorID:       m.DonorID,
		DonorName:     m.DonorName,
		TaxYear:       m.TaxYear,
		Status:        domain.DonationStatus(m.Status),
		Notes:         m.Notes,
		IsReceiptSent: m.IsReceiptSent,
		VerifiedAt:    m.VerifiedAt,
		VerifiedBy:    m.VerifiedBy,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

const donationColumns = `
	donation_id, amount, donation_date, method, category_id, category_name,
	line_item, is_quid_pro_quo, quid_pro_quo_value, quid_pro_quo_desc,
	is_anonymous, restriction_type, fair_market_value, donor_provided_value,
	donor_id, donor_name, tax_year, status, notes, is_receipt_sent,
	verified_at, verified_by, created_at, created_by, last_updated_at, last_updated_by`

// scanDonation scans one donation row in donationColumns order.
func scanDonation(row pgx.Row) (models.Donation, error) {
	var m models.Donation
	err := row.Scan(
		&m.DonationID,
		&m.Amount,
		&m.DonationDate,
		&m.Method,
		&m.CategoryID,
		&m.CategoryName,
		&m.LineItem,
		&m.IsQuidProQuo,
		&m.QuidProQuoValue,
		&m.QuidProQuoDesc,
		&m.IsAnonymous,
		&m.RestrictionType,
		&m.FairMarketValue,
		&m.DonorProvidedValue,
		&m.DonorID,
		&m.DonorName,
		&m.TaxYear,
		&m.Status,
		&m.Notes,
		&m.IsReceiptSent,
		&m.VerifiedAt,
		&m.VerifiedBy,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveDonation inserts a new donation record.
func (r *PgxDonationRepository) SaveDonation(ctx context.Context, donation domain.Donation) error {
	m := toModelDonation(donation)
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.DonationID, m.Amount, m.DonationDate, m.Method, m.CategoryID, m.CategoryName,
		m.LineItem, m.IsQuidProQuo, m.QuidProQuoValue, m.QuidProQuoDesc,
		m.IsAnonymous, m.RestrictionType, m.FairMarketValue, m.DonorProvidedValue,
		m.DonorID, m.DonorName, m.TaxYear, m.Status, m.Notes, m.IsReceiptSent,
		m.VerifiedAt, m.VerifiedBy, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("donation %s already exists: %w", m.DonationID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert donation %s: %w", m.DonationID, err)
	}
	return nil
}

// UpdateDonation persists changes to an existing donation record.
func (r *PgxDonationRepository) UpdateDonation(ctx context.Context, donation domain.Donation) error {
	m := toModelDonation(donation)
	query := `
		UPDATE donations SET
			amount = $2, donation_date = $3, method = $4, category_id = $5, category_name = $6,
			line_item = $7, is_quid_pro_quo = $8, quid_pro_quo_value = $9, quid_pro_quo_desc = $10,
			is_anonymous = $11, restriction_type = $12, fair_market_value = $13, donor_provided_value = $14,
			donor_id = $15, donor_name = $16, tax_year = $17, status = $18, notes = $19,
			is_receipt_sent = $20, verified_at = $21, verified_by = $22,
			last_updated_at = $23, last_updated_by = $24
		WHERE donation_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.DonationID, m.Amount, m.DonationDate, m.Method, m.CategoryID, m.CategoryName,
		m.LineItem, m.IsQuidProQuo, m.QuidProQuoValue, m.QuidProQuoDesc,
		m.IsAnonymous, m.RestrictionType, m.FairMarketValue, m.DonorProvidedValue,
		m.DonorID, m.DonorName, m.TaxYear, m.Status, m.Notes,
		m.IsReceiptSent, m.VerifiedAt, m.VerifiedBy,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update donation %s: %w", m.DonationID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindDonationByID retrieves a specific donation by its unique identifier.
func (r *PgxDonationRepository) FindDonationByID(ctx context.Context, donationID string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE donation_id = $1;`
	m, err := scanDonation(r.Pool.QueryRow(ctx, query, donationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find donation by ID %s: %w", donationID, err)
	}
	d := toDomainDonation(m)
	return &d, nil
}

// ListDonations retrieves a filtered, token-paginated list of donations.
// Ordering is donation_date DESC with created_at DESC as a stable tie-breaker,
// matching the cursor encoded in the pagination token.
func (r *PgxDonationRepository) ListDonations(ctx context.Context, filter portsrepo.DonationListFilter, limit int, nextToken *string) ([]domain.Donation, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to determine whether a next page exists.
	fetchLimit := limit + 1

	query := `SELECT ` + donationColumns + ` FROM donations WHERE 1=1`
	args := []interface{}{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		query += " AND " + clause + "$" + strconv.Itoa(len(args))
	}

	if filter.CategoryID != nil {
		addArg("category_id = ", *filter.CategoryID)
	}
	if filter.DonorID != nil {
		addArg("donor_id = ", *filter.DonorID)
	}
	if filter.Status != nil {
		addArg("status = ", string(*filter.Status))
	}
	if filter.PeriodStart != nil {
		addArg("donation_date >= ", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		addArg("donation_date <= ", *filter.PeriodEnd)
	}

	if nextToken != nil && *nextToken != "" {
		lastDonationDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("invalid nextToken: %w", apperrors.ErrValidation)
		}
		// Tuple comparison keeps the cursor condition aligned with the ORDER BY.
		args = append(args, lastDonationDate, lastCreatedAt)
		query += fmt.Sprintf(" AND (donation_date, created_at) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, fetchLimit)
	query += " ORDER BY donation_date DESC, created_at DESC LIMIT $" + strconv.Itoa(len(args)) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	fetched := make([]models.Donation, 0, fetchLimit)
	for rows.Next() {
		m, err := scanDonation(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		fetched = append(fetched, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating donation rows: %w", err)
	}

	var nextTokenVal *string
	if len(fetched) > limit {
		last := fetched[limit-1] // last item actually included in this page
		token := pagination.EncodeToken(last.DonationDate, last.CreatedAt)
		nextTokenVal = &token
		fetched = fetched[:limit]
	}

	donations := make([]domain.Donation, 0, len(fetched))
	for _, m := range fetched {
		donations = append(donations, toDomainDonation(m))
	}
	return donations, nextTokenVal, nil
}

// ListVerifiedByCategory retrieves every verified donation referencing a
// category. The recalculation path depends on this being the complete set,
// so no pagination here.
func (r *PgxDonationRepository) ListVerifiedByCategory(ctx context.Context, categoryID string) ([]domain.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE category_id = $1 AND status = 'VERIFIED'
		ORDER BY donation_date, created_at;`
	return r.listAll(ctx, query, categoryID)
}

// ListByDonor retrieves every donation attributed to a donor.
func (r *PgxDonationRepository) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE donor_id = $1
		ORDER BY donation_date DESC, created_at DESC;`
	return r.listAll(ctx, query, donorID)
}

func (r *PgxDonationRepository) listAll(ctx context.Context, query string, args ...interface{}) ([]domain.Donation, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	donations := []domain.Donation{}
	for rows.Next() {
		m, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		donations = append(donations, toDomainDonation(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donation rows: %w", err)
	}
	return donations, nil
}
