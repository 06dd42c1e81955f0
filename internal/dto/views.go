package dto

import (
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Role-specific donation projections. Each view type carries only the fields
// its role may observe: a lower-privileged viewer cannot distinguish "absent
// because anonymous" from "absent because redacted" since the fields are not
// part of the structure at all.

// FullDonationView is the full-access projection: every field including donor
// identity.
type FullDonationView struct {
	DonationID    string                  `json:"donationID"`
	Amount        decimal.Decimal         `json:"amount"`
	DonationDate  time.Time               `json:"donationDate"`
	Method        domain.DonationMethod   `json:"method"`
	CategoryID    string                  `json:"categoryID"`
	CategoryName  string                  `json:"categoryName"`
	Compliance    domain.ComplianceFields `json:"compliance"`
	DonorID       *string                 `json:"donorID,omitempty"` // nil only when anonymous
	DonorName     *string                 `json:"donorName,omitempty"`
	TaxYear       int                     `json:"taxYear"`
	Status        domain.DonationStatus   `json:"status"`
	Notes         string                  `json:"notes,omitempty"`
	IsReceiptSent bool                    `json:"isReceiptSent"`
	VerifiedAt    *time.Time              `json:"verifiedAt,omitempty"`
}

// AggregateDonationView is the aggregate-access projection: category, amount,
// method and compliance attributes. No donor identity fields exist on this
// type.
type AggregateDonationView struct {
	Amount          decimal.Decimal        `json:"amount"`
	DonationDate    time.Time              `json:"donationDate"`
	Method          domain.DonationMethod  `json:"method"`
	CategoryID      string                 `json:"categoryID"`
	CategoryName    string                 `json:"categoryName"`
	LineItem        domain.LineItem        `json:"lineItem"`
	RestrictionType domain.RestrictionType `json:"restrictionType"`
	IsTaxDeductible bool                   `json:"isTaxDeductible"`
	TaxYear         int                    `json:"taxYear"`
}

// SelfDonationView is the self-access projection: the donor's own records
// with their own identity and receipt status, nothing organization-wide.
type SelfDonationView struct {
	DonationID    string                `json:"donationID"`
	Amount        decimal.Decimal       `json:"amount"`
	DonationDate  time.Time             `json:"donationDate"`
	Method        domain.DonationMethod `json:"method"`
	CategoryName  string                `json:"categoryName"`
	TaxYear       int                   `json:"taxYear"`
	Status        domain.DonationStatus `json:"status"`
	IsReceiptSent bool                  `json:"isReceiptSent"`
}

// SanitizedDonationList is the role-projected donation list. Exactly one of
// the record slices is populated, matching Role.
type SanitizedDonationList struct {
	Role             domain.AccessRole       `json:"role"`
	FullRecords      []FullDonationView      `json:"fullRecords,omitempty"`
	AggregateRecords []AggregateDonationView `json:"aggregateRecords,omitempty"`
	SelfRecords      []SelfDonationView      `json:"selfRecords,omitempty"`
}

// SelfSummaryView is the personal summary projection for self-access: the
// subject's own totals and breakdowns, without organization-wide donor
// ranges.
type SelfSummaryView struct {
	PeriodStart     time.Time                                       `json:"periodStart"`
	PeriodEnd       time.Time                                       `json:"periodEnd"`
	TotalDonations  decimal.Decimal                                 `json:"totalDonations"`
	DonationCount   int64                                           `json:"donationCount"`
	AverageDonation decimal.Decimal                                 `json:"averageDonation"`
	ByCategory      map[string]domain.BreakdownEntry                `json:"byCategory"`
	ByMethod        map[domain.DonationMethod]domain.BreakdownEntry `json:"byMethod"`
}

// SanitizedSummary is the role-projected financial summary. Exactly one of
// the views is populated, matching Role.
type SanitizedSummary struct {
	Role      domain.AccessRole        `json:"role"`
	Full      *domain.FinancialSummary `json:"full,omitempty"`
	Aggregate *domain.FinancialSummary `json:"aggregate,omitempty"`
	Self      *SelfSummaryView         `json:"self,omitempty"`
}
