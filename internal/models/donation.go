package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation is the database representation of a single ledger record.
// Compliance attributes are stored as flat columns rather than a nested
// document so reports can filter on them directly.
type Donation struct {
	DonationID   string          `json:"donationID"`
	Amount       decimal.Decimal `json:"amount"`
	DonationDate time.Time       `json:"donationDate"`
	Method       string          `json:"method"`
	CategoryID   string          `json:"categoryID"`
	CategoryName string          `json:"categoryName"`

	LineItem           string           `json:"lineItem"`
	IsQuidProQuo       bool             `json:"isQuidProQuo"`
	QuidProQuoValue    *decimal.Decimal `json:"quidProQuoValue"`
	QuidProQuoDesc     string           `json:"quidProQuoDesc"`
	IsAnonymous        bool             `json:"isAnonymous"`
	RestrictionType    string           `json:"restrictionType"`
	FairMarketValue    *decimal.Decimal `json:"fairMarketValue"`
	DonorProvidedValue *decimal.Decimal `json:"donorProvidedValue"`

	DonorID   *string `json:"donorID"`
	DonorName *string `json:"donorName"`

	TaxYear int    `json:"taxYear"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`

	IsReceiptSent bool       `json:"isReceiptSent"`
	VerifiedAt    *time.Time `json:"verifiedAt"`
	VerifiedBy    *string    `json:"verifiedBy"`
	AuditFields
}
