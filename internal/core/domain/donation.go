package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus indicates the lifecycle state of a donation record.
type DonationStatus string

const (
	DonationPending  DonationStatus = "PENDING"
	DonationVerified DonationStatus = "VERIFIED"
	DonationVoid     DonationStatus = "VOID"
	DonationRefunded DonationStatus = "REFUNDED"
)

// DonationMethod is the closed enumeration of accepted payment methods.
type DonationMethod string

const (
	MethodCheck        DonationMethod = "CHECK"
	MethodCash         DonationMethod = "CASH"
	MethodCard         DonationMethod = "CARD"
	MethodBankTransfer DonationMethod = "BANK_TRANSFER"
	MethodStock        DonationMethod = "STOCK"
	MethodCrypto       DonationMethod = "CRYPTO"
	MethodInKind       DonationMethod = "IN_KIND"
	MethodOther        DonationMethod = "OTHER"
)

// ValidMethod reports whether m is a member of the method enumeration.
func ValidMethod(m DonationMethod) bool {
	switch m {
	case MethodCheck, MethodCash, MethodCard, MethodBankTransfer,
		MethodStock, MethodCrypto, MethodInKind, MethodOther:
		return true
	}
	return false
}

// RestrictionType classifies donor-imposed restrictions on a gift.
type RestrictionType string

const (
	Unrestricted          RestrictionType = "UNRESTRICTED"
	TemporarilyRestricted RestrictionType = "TEMPORARILY_RESTRICTED"
	PermanentlyRestricted RestrictionType = "PERMANENTLY_RESTRICTED"
)

// ValidRestriction reports whether r is a member of the restriction enumeration.
func ValidRestriction(r RestrictionType) bool {
	switch r {
	case Unrestricted, TemporarilyRestricted, PermanentlyRestricted:
		return true
	}
	return false
}

// ComplianceFields carries the regulatory reporting attributes of a donation.
type ComplianceFields struct {
	LineItem           LineItem         `json:"lineItem"`
	IsQuidProQuo       bool             `json:"isQuidProQuo"`
	QuidProQuoValue    *decimal.Decimal `json:"quidProQuoValue,omitempty"` // required when IsQuidProQuo
	QuidProQuoDesc     string           `json:"quidProQuoDesc,omitempty"`
	IsAnonymous        bool             `json:"isAnonymous"`
	RestrictionType    RestrictionType  `json:"restrictionType"`
	FairMarketValue    *decimal.Decimal `json:"fairMarketValue,omitempty"`    // non-cash gifts
	DonorProvidedValue *decimal.Decimal `json:"donorProvidedValue,omitempty"` // non-cash gifts
}

// Donation is a single financial transaction record in the ledger.
// Once verified it is immutable except for the void/refund transitions,
// which retain the record for audit.
type Donation struct {
	DonationID   string          `json:"donationID"` // Primary key (UUID)
	Amount       decimal.Decimal `json:"amount"`     // > 0, two fractional digits
	DonationDate time.Time       `json:"donationDate"`
	Method       DonationMethod  `json:"method"`
	CategoryID   string          `json:"categoryID"`
	CategoryName string          `json:"categoryName"` // Denormalized display copy; reports re-resolve

	Compliance ComplianceFields `json:"compliance"`

	// Donor identity is nil for anonymous gifts, never merely blanked.
	DonorID   *string `json:"donorID,omitempty"`
	DonorName *string `json:"donorName,omitempty"`

	TaxYear int            `json:"taxYear"` // Derived from DonationDate, immutable once set
	Status  DonationStatus `json:"status"`
	Notes   string         `json:"notes,omitempty"`

	IsReceiptSent bool       `json:"isReceiptSent"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy    *string    `json:"verifiedBy,omitempty"`
	AuditFields
}

// CountsTowardTotals reports whether the donation contributes to category
// running statistics and compliance reports.
func (d *Donation) CountsTowardTotals() bool {
	return d.Status == DonationVerified
}

// LedgerEventKind classifies a change event emitted by the ledger.
type LedgerEventKind string

const (
	EventDonationCreated  LedgerEventKind = "DONATION_CREATED"
	EventDonationUpdated  LedgerEventKind = "DONATION_UPDATED"
	EventDonationVerified LedgerEventKind = "DONATION_VERIFIED"
	EventDonationVoided   LedgerEventKind = "DONATION_VOIDED"
	EventDonationRefunded LedgerEventKind = "DONATION_REFUNDED"
)

// LedgerEvent is a single change notification from the donation ledger.
// Sequence is monotonically increasing per emitter so consumers can apply
// events idempotently.
type LedgerEvent struct {
	Sequence   int64           `json:"sequence"`
	Kind       LedgerEventKind `json:"kind"`
	DonationID string          `json:"donationID"`
	CategoryID string          `json:"categoryID"`
	DonorID    *string         `json:"donorID,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}
