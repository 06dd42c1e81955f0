package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
)

// complianceService maps donations onto the regulatory revenue line-item
// taxonomy and builds disclosure lists.
type complianceService struct {
	BaseService
	categoryRepo portsrepo.CategoryReader
}

// NewComplianceService creates a new compliance taxonomy service.
func NewComplianceService(categoryRepo portsrepo.CategoryReader) portssvc.ComplianceSvc {
	return &complianceService{categoryRepo: categoryRepo}
}

var _ portssvc.ComplianceSvc = (*complianceService)(nil)

// ValidateCategoryTaxonomy checks that the category's default line item is a
// member of the enumeration and coherent with its deductibility flag. Only
// contribution line items (and government grants) may back a tax-deductible
// category.
func (s *complianceService) ValidateCategoryTaxonomy(category domain.Category) error {
	if !domain.ValidLineItem(category.DefaultLineItem) {
		return apperrors.NewValidationError("defaultLineItem",
			fmt.Sprintf("unknown line item %q", category.DefaultLineItem))
	}
	if category.IsTaxDeductible && !domain.LineItemDeductible(category.DefaultLineItem) {
		return apperrors.NewValidationError("isTaxDeductible",
			fmt.Sprintf("line item %s cannot be tax-deductible", category.DefaultLineItem))
	}
	return nil
}

// ValidateDonationCompliance checks the compliance block of a donation.
func (s *complianceService) ValidateDonationCompliance(donation domain.Donation) error {
	cf := donation.Compliance

	if !domain.ValidLineItem(cf.LineItem) {
		return apperrors.NewValidationError("taxonomy",
			fmt.Sprintf("unknown line item %q", cf.LineItem))
	}
	if !domain.ValidRestriction(cf.RestrictionType) {
		return apperrors.NewValidationError("taxonomy",
			fmt.Sprintf("unknown restriction type %q", cf.RestrictionType))
	}
	if cf.IsQuidProQuo {
		if cf.QuidProQuoValue == nil {
			return apperrors.NewValidationError("taxonomy", "quid pro quo donations require quidProQuoValue")
		}
		if cf.QuidProQuoValue.LessThanOrEqual(decimal.Zero) {
			return apperrors.NewValidationError("taxonomy", "quidProQuoValue must be positive")
		}
		if cf.QuidProQuoValue.GreaterThanOrEqual(donation.Amount) {
			return apperrors.NewValidationError("taxonomy", "quidProQuoValue must be less than the donation amount")
		}
	} else if cf.QuidProQuoValue != nil {
		return apperrors.NewValidationError("taxonomy", "quidProQuoValue requires isQuidProQuo")
	}
	return nil
}

// ResolveLineItem resolves the effective line item for a donation. The
// donation's own line item wins; otherwise the category default applies;
// unknown or missing values bucket under not-applicable rather than being
// dropped.
func (s *complianceService) ResolveLineItem(donation domain.Donation, category *domain.Category) domain.LineItem {
	if domain.ValidLineItem(donation.Compliance.LineItem) && donation.Compliance.LineItem != "" {
		return donation.Compliance.LineItem
	}
	if category != nil && domain.ValidLineItem(category.DefaultLineItem) {
		return category.DefaultLineItem
	}
	return domain.LineItemNotApplicable
}

// QuidProQuoDisclosures builds the disclosure list of donations partially
// offset by goods or services. deductibleAmount = totalAmount - quidProQuoValue.
func (s *complianceService) QuidProQuoDisclosures(donations []domain.Donation) []domain.QuidProQuoDisclosure {
	disclosures := make([]domain.QuidProQuoDisclosure, 0)
	for _, d := range donations {
		if !d.CountsTowardTotals() || !d.Compliance.IsQuidProQuo || d.Compliance.QuidProQuoValue == nil {
			continue
		}
		qpq := *d.Compliance.QuidProQuoValue
		disclosures = append(disclosures, domain.QuidProQuoDisclosure{
			DonationID:       d.DonationID,
			TotalAmount:      d.Amount,
			QuidProQuoValue:  qpq,
			DeductibleAmount: d.Amount.Sub(qpq),
			Description:      d.Compliance.QuidProQuoDesc,
		})
	}
	return disclosures
}

// RestrictedFundDisclosures groups temporarily and permanently restricted
// donations by category. Category names are re-resolved from the repository
// rather than trusted from the denormalized copy on the donation.
func (s *complianceService) RestrictedFundDisclosures(ctx context.Context, donations []domain.Donation) ([]domain.RestrictedFundDisclosure, error) {
	byCategory := make(map[string]*domain.RestrictedFundDisclosure)

	for _, d := range donations {
		if !d.CountsTowardTotals() {
			continue
		}
		rt := d.Compliance.RestrictionType
		if rt != domain.TemporarilyRestricted && rt != domain.PermanentlyRestricted {
			continue
		}

		entry, ok := byCategory[d.CategoryID]
		if !ok {
			name := d.CategoryName
			category, err := s.categoryRepo.FindCategoryByID(ctx, d.CategoryID)
			if err == nil {
				name = category.Name
			} else {
				s.LogWarn(ctx, "Could not re-resolve category name for restricted fund disclosure",
					"category_id", d.CategoryID, "error", err.Error())
			}
			entry = &domain.RestrictedFundDisclosure{
				CategoryID:            d.CategoryID,
				CategoryName:          name,
				TemporarilyRestricted: decimal.Zero,
				PermanentlyRestricted: decimal.Zero,
			}
			byCategory[d.CategoryID] = entry
		}

		switch rt {
		case domain.TemporarilyRestricted:
			entry.TemporarilyRestricted = entry.TemporarilyRestricted.Add(d.Amount)
		case domain.PermanentlyRestricted:
			entry.PermanentlyRestricted = entry.PermanentlyRestricted.Add(d.Amount)
		}
		entry.DonationCount++
	}

	disclosures := make([]domain.RestrictedFundDisclosure, 0, len(byCategory))
	for _, entry := range byCategory {
		disclosures = append(disclosures, *entry)
	}
	sort.Slice(disclosures, func(i, j int) bool {
		return disclosures[i].CategoryName < disclosures[j].CategoryName
	})
	return disclosures, nil
}
