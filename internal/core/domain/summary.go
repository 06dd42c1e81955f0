package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BreakdownEntry is one row of a summary breakdown map.
type BreakdownEntry struct {
	Amount     decimal.Decimal `json:"amount"`
	Count      int64           `json:"count"`
	Percentage decimal.Decimal `json:"percentage"` // Amount/Total*100, two decimals
}

// DonorRange is one histogram bucket of donor giving totals for a period.
type DonorRange struct {
	Label      string           `json:"label"` // e.g. "$1,000-$2,499"
	Min        decimal.Decimal  `json:"min"`
	Max        *decimal.Decimal `json:"max,omitempty"` // nil for the open top bucket
	DonorCount int64            `json:"donorCount"`
	Amount     decimal.Decimal  `json:"amount"`
}

// GrowthMetrics holds year-over-year deltas against a previous period.
type GrowthMetrics struct {
	PreviousTotal decimal.Decimal `json:"previousTotal"`
	PreviousCount int64           `json:"previousCount"`
	AmountGrowth  decimal.Decimal `json:"amountGrowth"` // percent
	CountGrowth   decimal.Decimal `json:"countGrowth"`  // percent
}

// SkippedRecord annotates a donation excluded from a summary because the
// record was malformed.
type SkippedRecord struct {
	DonationID string `json:"donationID"`
	Reason     string `json:"reason"`
}

// FinancialSummary is an ephemeral, recomputable projection over a donation
// set for a reporting period. It is never persisted as a source of truth and
// must be fully reconstructible from the donations plus category metadata.
type FinancialSummary struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	TotalDonations  decimal.Decimal `json:"totalDonations"`
	DonationCount   int64           `json:"donationCount"`
	AverageDonation decimal.Decimal `json:"averageDonation"`

	ByCategory map[string]BreakdownEntry         `json:"byCategory"` // keyed by resolved category name
	ByMethod   map[DonationMethod]BreakdownEntry `json:"byMethod"`
	ByLineItem map[LineItem]BreakdownEntry       `json:"byLineItem"`

	TopDonorRanges []DonorRange `json:"topDonorRanges"`

	Growth *GrowthMetrics `json:"growth,omitempty"` // present when a previous period was supplied

	SkippedRecords []SkippedRecord `json:"skippedRecords,omitempty"`
}
