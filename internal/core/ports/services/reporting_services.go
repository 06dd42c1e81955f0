package services

import (
	"context"
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// AggregationSvc computes financial summaries. ComputeSummary is a pure
// function of its inputs and is safe for concurrent use without locking.
type AggregationSvc interface {
	// ComputeSummary builds a FinancialSummary over the supplied donation set
	// for the period. Donations outside the period or not verified are
	// filtered out; malformed records are skipped with annotations rather
	// than aborting. previous, when non-nil, drives year-over-year growth.
	ComputeSummary(ctx context.Context, donations []domain.Donation, periodStart, periodEnd time.Time, previous *domain.FinancialSummary) (*domain.FinancialSummary, error)

	// BuildPeriodSummary queries the ledger for the period and computes its
	// summary, optionally alongside the immediately preceding period of equal
	// length for growth metrics.
	BuildPeriodSummary(ctx context.Context, periodStart, periodEnd time.Time, withPrevious bool) (*domain.FinancialSummary, error)
}

// ComplianceSvc maps donations onto the regulatory line-item taxonomy and
// produces disclosure lists.
type ComplianceSvc interface {
	// ValidateCategoryTaxonomy checks that a category's default line item is
	// coherent with its tax-deductibility flag.
	ValidateCategoryTaxonomy(category domain.Category) error

	// ValidateDonationCompliance checks the compliance fields of a donation.
	ValidateDonationCompliance(donation domain.Donation) error

	// ResolveLineItem resolves the effective line item for a donation: the
	// donation's own line item when set, else the category default, else
	// not-applicable.
	ResolveLineItem(donation domain.Donation, category *domain.Category) domain.LineItem

	// QuidProQuoDisclosures builds the quid pro quo disclosure list for a
	// donation set.
	QuidProQuoDisclosures(donations []domain.Donation) []domain.QuidProQuoDisclosure

	// RestrictedFundDisclosures groups restricted donations by category.
	RestrictedFundDisclosures(ctx context.Context, donations []domain.Donation) ([]domain.RestrictedFundDisclosure, error)
}
