package dto

import (
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ComplianceFieldsRequest carries the regulatory attributes on create/update.
type ComplianceFieldsRequest struct {
	LineItem           domain.LineItem        `json:"lineItem" binding:"required"`
	IsQuidProQuo       bool                   `json:"isQuidProQuo"`
	QuidProQuoValue    *decimal.Decimal       `json:"quidProQuoValue"` // required when IsQuidProQuo
	QuidProQuoDesc     string                 `json:"quidProQuoDesc"`
	IsAnonymous        bool                   `json:"isAnonymous"`
	RestrictionType    domain.RestrictionType `json:"restrictionType" binding:"omitempty,oneof=UNRESTRICTED TEMPORARILY_RESTRICTED PERMANENTLY_RESTRICTED"`
	FairMarketValue    *decimal.Decimal       `json:"fairMarketValue"`
	DonorProvidedValue *decimal.Decimal       `json:"donorProvidedValue"`
}

// CreateDonationRequest defines the data needed to record a new donation.
type CreateDonationRequest struct {
	Amount       decimal.Decimal         `json:"amount" binding:"required"`
	DonationDate time.Time               `json:"donationDate" binding:"required"`
	Method       domain.DonationMethod   `json:"method" binding:"required,oneof=CHECK CASH CARD BANK_TRANSFER STOCK CRYPTO IN_KIND OTHER"`
	CategoryID   string                  `json:"categoryID" binding:"required"`
	Compliance   ComplianceFieldsRequest `json:"compliance" binding:"required"`
	DonorID      *string                 `json:"donorID"` // nil for anonymous gifts
	DonorName    *string                 `json:"donorName"`
	Notes        string                  `json:"notes"`
}

// UpdateDonationRequest defines the fields that may change while a donation
// is still pending. Pointers distinguish "not provided" from zero values.
type UpdateDonationRequest struct {
	Amount       *decimal.Decimal         `json:"amount"`
	DonationDate *time.Time               `json:"donationDate"`
	Method       *domain.DonationMethod   `json:"method"`
	CategoryID   *string                  `json:"categoryID"`
	Compliance   *ComplianceFieldsRequest `json:"compliance"`
	DonorID      *string                  `json:"donorID"`
	DonorName    *string                  `json:"donorName"`
	Notes        *string                  `json:"notes"`
}

// ListDonationsParams holds filter and pagination parameters for listing
// donations.
type ListDonationsParams struct {
	CategoryID  *string
	DonorID     *string
	Status      *domain.DonationStatus
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Limit       int
	NextToken   *string
}

// DonationResponse defines the full, unsanitized data returned for a
// donation. Role projection happens in the sanitizer, not here.
type DonationResponse struct {
	DonationID    string                  `json:"donationID"`
	Amount        decimal.Decimal         `json:"amount"`
	DonationDate  time.Time               `json:"donationDate"`
	Method        domain.DonationMethod   `json:"method"`
	CategoryID    string                  `json:"categoryID"`
	CategoryName  string                  `json:"categoryName"`
	Compliance    domain.ComplianceFields `json:"compliance"`
	DonorID       *string                 `json:"donorID,omitempty"`
	DonorName     *string                 `json:"donorName,omitempty"`
	TaxYear       int                     `json:"taxYear"`
	Status        domain.DonationStatus   `json:"status"`
	Notes         string                  `json:"notes,omitempty"`
	IsReceiptSent bool                    `json:"isReceiptSent"`
	VerifiedAt    *time.Time              `json:"verifiedAt,omitempty"`
	VerifiedBy    *string                 `json:"verifiedBy,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastUpdatedAt time.Time               `json:"lastUpdatedAt"`
}

// ToDonationResponse converts a domain.Donation to its response DTO.
func ToDonationResponse(d *domain.Donation) DonationResponse {
	return DonationResponse{
		DonationID:    d.DonationID,
		Amount:        d.Amount,
		DonationDate:  d.DonationDate,
		Method:        d.Method,
		CategoryID:    d.CategoryID,
		CategoryName:  d.CategoryName,
		Compliance:    d.Compliance,
		DonorID:       d.DonorID,
		DonorName:     d.DonorName,
		TaxYear:       d.TaxYear,
		Status:        d.Status,
		Notes:         d.Notes,
		IsReceiptSent: d.IsReceiptSent,
		VerifiedAt:    d.VerifiedAt,
		VerifiedBy:    d.VerifiedBy,
		CreatedAt:     d.CreatedAt,
		LastUpdatedAt: d.LastUpdatedAt,
	}
}
