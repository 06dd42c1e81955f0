package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the database representation of a donation category. Running
// statistics live on the same row; they are only ever written through
// UpdateCategoryStatistics.
type Category struct {
	CategoryID      string `json:"categoryID"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DefaultLineItem string `json:"defaultLineItem"`
	IsTaxDeductible bool   `json:"isTaxDeductible"`
	IsActive        bool   `json:"isActive"`
	DisplayOrder    int    `json:"displayOrder"`

	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DonationCount    int64           `json:"donationCount"`
	AverageDonation  decimal.Decimal `json:"averageDonation"`
	CurrentYearTotal decimal.Decimal `json:"currentYearTotal"`
	LastYearTotal    decimal.Decimal `json:"lastYearTotal"`
	LastDonationDate *time.Time      `json:"lastDonationDate"`
	AuditFields
}
