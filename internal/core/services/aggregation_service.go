package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/utils/currency"
)

// ZeroPreviousPolicy selects how growth is reported when the previous period
// total is zero. Treating it as 100% growth matches common reporting
// conventions but is not mathematically forced, so it stays configurable.
type ZeroPreviousPolicy string

const (
	// ZeroPreviousPercent100 reports 100% growth when the prior period is zero
	// and the current period is positive.
	ZeroPreviousPercent100 ZeroPreviousPolicy = "percent100"
	// ZeroPreviousZero reports 0% growth when the prior period is zero.
	ZeroPreviousZero ZeroPreviousPolicy = "zero"
)

// donorRangeBound defines one histogram bucket boundary for donor totals.
type donorRangeBound struct {
	label string
	min   decimal.Decimal
	max   *decimal.Decimal // nil for the open top bucket
}

// donorRangeBounds are the fixed currency ranges for the donor histogram,
// ordered ascending. Upper bounds are inclusive.
var donorRangeBounds = buildDonorRangeBounds()

func buildDonorRangeBounds() []donorRangeBound {
	b := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	mk := func(label string, min int64, max int64) donorRangeBound {
		upper := b(max).Add(decimal.New(99, -2)) // e.g. 249 -> 249.99
		return donorRangeBound{label: label, min: b(min), max: &upper}
	}
	return []donorRangeBound{
		mk("$1-$99", 1, 99),
		mk("$100-$249", 100, 249),
		mk("$250-$499", 250, 499),
		mk("$500-$999", 500, 999),
		mk("$1,000-$2,499", 1000, 2499),
		mk("$2,500-$4,999", 2500, 4999),
		mk("$5,000-$9,999", 5000, 9999),
		{label: "$10,000+", min: b(10000)},
	}
}

// aggregationService computes financial summaries over donation sets.
// ComputeSummary holds no mutable state and may be invoked concurrently.
type aggregationService struct {
	BaseService
	donationRepo  portsrepo.DonationReader
	categoryRepo  portsrepo.CategoryReader
	complianceSvc portssvc.ComplianceSvc
	zeroPrevious  ZeroPreviousPolicy
}

// AggregationServiceOption is a functional option for configuring the
// aggregation service.
type AggregationServiceOption func(*aggregationService)

// WithZeroPreviousPolicy sets the zero-previous-period growth policy.
func WithZeroPreviousPolicy(policy ZeroPreviousPolicy) AggregationServiceOption {
	return func(s *aggregationService) {
		if policy == ZeroPreviousZero || policy == ZeroPreviousPercent100 {
			s.zeroPrevious = policy
		}
	}
}

// NewAggregationService creates a new aggregation service.
func NewAggregationService(donationRepo portsrepo.DonationReader, categoryRepo portsrepo.CategoryReader, complianceSvc portssvc.ComplianceSvc, options ...AggregationServiceOption) portssvc.AggregationSvc {
	svc := &aggregationService{
		donationRepo:  donationRepo,
		categoryRepo:  categoryRepo,
		complianceSvc: complianceSvc,
		zeroPrevious:  ZeroPreviousPercent100,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AggregationSvc = (*aggregationService)(nil)

// ComputeSummary builds a FinancialSummary over the supplied donation set.
// Only verified donations dated within [periodStart, periodEnd] contribute.
// Malformed records are excluded with an annotation instead of aborting the
// report. An empty input yields an all-zero summary, never an error.
func (s *aggregationService) ComputeSummary(ctx context.Context, donations []domain.Donation, periodStart, periodEnd time.Time, previous *domain.FinancialSummary) (*domain.FinancialSummary, error) {
	summary := &domain.FinancialSummary{
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		TotalDonations:  decimal.Zero,
		AverageDonation: decimal.Zero,
		ByCategory:      make(map[string]domain.BreakdownEntry),
		ByMethod:        make(map[domain.DonationMethod]domain.BreakdownEntry),
		ByLineItem:      make(map[domain.LineItem]domain.BreakdownEntry),
	}

	// Categories are re-resolved at report time: names because the
	// denormalized copy on the donation is a display optimization only, and
	// whole records because line-item resolution falls back to the category
	// default.
	categoryByID := s.loadCategories(ctx)

	donorTotals := make(map[string]decimal.Decimal)

	for i := range donations {
		d := &donations[i]

		if !d.CountsTowardTotals() {
			continue
		}
		if d.DonationDate.Before(periodStart) || d.DonationDate.After(periodEnd) {
			continue
		}

		if reason := malformedReason(d); reason != "" {
			summary.SkippedRecords = append(summary.SkippedRecords, domain.SkippedRecord{
				DonationID: d.DonationID,
				Reason:     reason,
			})
			s.LogWarn(ctx, "Excluding malformed donation record from summary",
				"donation_id", d.DonationID, "reason", reason)
			continue
		}

		summary.TotalDonations = summary.TotalDonations.Add(d.Amount)
		summary.DonationCount++

		category := categoryByID[d.CategoryID]

		categoryKey := d.CategoryName
		if category != nil {
			categoryKey = category.Name
		}
		accumulate(summary.ByCategory, categoryKey, d.Amount)
		accumulate(summary.ByMethod, d.Method, d.Amount)

		// Donation override, else category default, else not-applicable.
		// A legacy record with no line item of its own still lands under
		// its category's line rather than being dropped silently.
		lineItem := s.complianceSvc.ResolveLineItem(*d, category)
		accumulate(summary.ByLineItem, lineItem, d.Amount)

		if !d.Compliance.IsAnonymous && d.DonorID != nil {
			donorTotals[*d.DonorID] = donorTotals[*d.DonorID].Add(d.Amount)
		}
	}

	summary.AverageDonation = currency.SafeAverage(summary.TotalDonations, summary.DonationCount)

	finalizePercentages(summary.ByCategory, summary.TotalDonations)
	finalizePercentages(summary.ByMethod, summary.TotalDonations)
	finalizePercentages(summary.ByLineItem, summary.TotalDonations)

	summary.TopDonorRanges = bucketDonorTotals(donorTotals)

	if previous != nil {
		summary.Growth = s.computeGrowth(summary, previous)
	}

	return summary, nil
}

// BuildPeriodSummary queries the ledger for the period and computes its
// summary. When withPrevious is set, the immediately preceding period of
// equal length is summarized first and supplied for growth metrics.
func (s *aggregationService) BuildPeriodSummary(ctx context.Context, periodStart, periodEnd time.Time, withPrevious bool) (*domain.FinancialSummary, error) {
	var previous *domain.FinancialSummary

	if withPrevious {
		length := periodEnd.Sub(periodStart)
		prevEnd := periodStart.Add(-time.Nanosecond)
		prevStart := prevEnd.Add(-length)

		prevDonations, err := s.fetchVerified(ctx, prevStart, prevEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch previous period donations: %w", err)
		}
		previous, err = s.ComputeSummary(ctx, prevDonations, prevStart, prevEnd, nil)
		if err != nil {
			return nil, err
		}
	}

	donations, err := s.fetchVerified(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch period donations: %w", err)
	}

	summary, err := s.ComputeSummary(ctx, donations, periodStart, periodEnd, previous)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Financial summary computed",
		"period_start", periodStart.Format(time.RFC3339),
		"period_end", periodEnd.Format(time.RFC3339),
		"donation_count", summary.DonationCount,
		"skipped", len(summary.SkippedRecords))
	return summary, nil
}

// fetchVerified pages through all verified donations for a period.
func (s *aggregationService) fetchVerified(ctx context.Context, start, end time.Time) ([]domain.Donation, error) {
	status := domain.DonationVerified
	filter := portsrepo.DonationListFilter{
		Status:      &status,
		PeriodStart: &start,
		PeriodEnd:   &end,
	}

	var all []domain.Donation
	var nextToken *string
	for {
		page, token, err := s.donationRepo.ListDonations(ctx, filter, 500, nextToken)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if token == nil {
			break
		}
		nextToken = token
	}
	return all, nil
}

// loadCategories loads the current category set keyed by ID, falling back to
// the donations' denormalized names when the lookup fails.
func (s *aggregationService) loadCategories(ctx context.Context) map[string]*domain.Category {
	categories, err := s.categoryRepo.ListCategories(ctx, false)
	if err != nil {
		s.LogWarn(ctx, "Could not load categories for name resolution, using denormalized names", "error", err.Error())
		return map[string]*domain.Category{}
	}
	byID := make(map[string]*domain.Category, len(categories))
	for i := range categories {
		byID[categories[i].CategoryID] = &categories[i]
	}
	return byID
}

func (s *aggregationService) computeGrowth(current, previous *domain.FinancialSummary) *domain.GrowthMetrics {
	return &domain.GrowthMetrics{
		PreviousTotal: previous.TotalDonations,
		PreviousCount: previous.DonationCount,
		AmountGrowth:  s.growthPercent(current.TotalDonations, previous.TotalDonations),
		CountGrowth:   s.growthPercent(decimal.NewFromInt(current.DonationCount), decimal.NewFromInt(previous.DonationCount)),
	}
}

// growthPercent computes (current-previous)/previous*100. A zero previous
// period follows the configured policy instead of dividing by zero.
func (s *aggregationService) growthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if s.zeroPrevious == ZeroPreviousPercent100 && current.GreaterThan(decimal.Zero) {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

// malformedReason reports why a donation record cannot enter a summary, or
// "" when the record is sound.
func malformedReason(d *domain.Donation) string {
	switch {
	case d.DonationID == "":
		return "missing donation ID"
	case d.Amount.LessThanOrEqual(decimal.Zero):
		return "non-positive amount"
	case !currency.HasValidPrecision(d.Amount):
		return "amount exceeds currency precision"
	case d.CategoryID == "":
		return "missing category reference"
	case d.DonationDate.IsZero():
		return "missing donation date"
	}
	return ""
}

// accumulate adds one donation into a breakdown map entry.
func accumulate[K comparable](m map[K]domain.BreakdownEntry, key K, amount decimal.Decimal) {
	entry := m[key]
	if entry.Count == 0 {
		entry.Amount = decimal.Zero
		entry.Percentage = decimal.Zero
	}
	entry.Amount = entry.Amount.Add(amount)
	entry.Count++
	m[key] = entry
}

// finalizePercentages fills in percentage = amount/total*100 for every entry.
// When total is zero all percentages are zero, never NaN.
func finalizePercentages[K comparable](m map[K]domain.BreakdownEntry, total decimal.Decimal) {
	for key, entry := range m {
		entry.Percentage = currency.Percentage(entry.Amount, total)
		m[key] = entry
	}
}

// bucketDonorTotals folds per-donor period totals into the fixed currency
// ranges, ordered ascending.
func bucketDonorTotals(donorTotals map[string]decimal.Decimal) []domain.DonorRange {
	ranges := make([]domain.DonorRange, len(donorRangeBounds))
	for i, bound := range donorRangeBounds {
		ranges[i] = domain.DonorRange{
			Label:  bound.label,
			Min:    bound.min,
			Max:    bound.max,
			Amount: decimal.Zero,
		}
	}

	for _, total := range donorTotals {
		for i, bound := range donorRangeBounds {
			if total.LessThan(bound.min) {
				break // buckets ascend; no later bucket can match
			}
			if bound.max != nil && total.GreaterThan(*bound.max) {
				continue
			}
			ranges[i].DonorCount++
			ranges[i].Amount = ranges[i].Amount.Add(total)
			break
		}
	}
	return ranges
}
