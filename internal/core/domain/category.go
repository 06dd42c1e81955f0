package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a reporting bucket for donations, carrying running statistics
// that are maintained exclusively by the category statistics updater.
type Category struct {
	CategoryID      string   `json:"categoryID"` // Primary key (UUID)
	Name            string   `json:"name"`       // Unique, <= 100 chars
	Description     string   `json:"description,omitempty"`
	DefaultLineItem LineItem `json:"defaultLineItem"`
	IsTaxDeductible bool     `json:"isTaxDeductible"`
	IsActive        bool     `json:"isActive"`     // Deactivated, never deleted while referenced
	DisplayOrder    int      `json:"displayOrder"` // Unique positive among active categories

	Statistics CategoryStatistics `json:"statistics"`
	AuditFields
}

// CategoryStatistics are the running totals for a category, derived from its
// verified donations. Only the updater writes these fields; any other path
// is a bug.
type CategoryStatistics struct {
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DonationCount    int64           `json:"donationCount"`
	AverageDonation  decimal.Decimal `json:"averageDonation"` // TotalAmount / DonationCount, currency precision
	CurrentYearTotal decimal.Decimal `json:"currentYearTotal"`
	LastYearTotal    decimal.Decimal `json:"lastYearTotal"`
	LastDonationDate *time.Time      `json:"lastDonationDate,omitempty"`
}

// ZeroStatistics returns statistics with all decimal fields initialized to
// zero values rather than the decimal zero-value (which marshals identically
// but keeps comparisons uniform).
func ZeroStatistics() CategoryStatistics {
	return CategoryStatistics{
		TotalAmount:      decimal.Zero,
		AverageDonation:  decimal.Zero,
		CurrentYearTotal: decimal.Zero,
		LastYearTotal:    decimal.Zero,
	}
}
