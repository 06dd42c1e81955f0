package domain

import "github.com/shopspring/decimal"

// LineItem is the closed enumeration of regulatory revenue line items used
// for nonprofit compliance reporting.
type LineItem string

const (
	LineItemCashContributions     LineItem = "CASH_CONTRIBUTIONS"
	LineItemNonCashContributions  LineItem = "NONCASH_CONTRIBUTIONS"
	LineItemReportedElsewhere     LineItem = "CONTRIBUTIONS_REPORTED_ELSEWHERE"
	LineItemRelatedOrganizations  LineItem = "RELATED_ORG_CONTRIBUTIONS"
	LineItemGovernmentGrants      LineItem = "GOVERNMENT_GRANTS"
	LineItemOtherContributions    LineItem = "OTHER_CONTRIBUTIONS"
	LineItemProgramServiceRevenue LineItem = "PROGRAM_SERVICE_REVENUE"
	LineItemInvestmentIncome      LineItem = "INVESTMENT_INCOME"
	LineItemOtherRevenue          LineItem = "OTHER_REVENUE"
	LineItemNotApplicable         LineItem = "NOT_APPLICABLE"
)

// AllLineItems lists every member of the enumeration in reporting order.
var AllLineItems = []LineItem{
	LineItemCashContributions,
	LineItemNonCashContributions,
	LineItemReportedElsewhere,
	LineItemRelatedOrganizations,
	LineItemGovernmentGrants,
	LineItemOtherContributions,
	LineItemProgramServiceRevenue,
	LineItemInvestmentIncome,
	LineItemOtherRevenue,
	LineItemNotApplicable,
}

// ValidLineItem reports whether li is a member of the enumeration.
func ValidLineItem(li LineItem) bool {
	for _, v := range AllLineItems {
		if li == v {
			return true
		}
	}
	return false
}

// deductibleLineItems is the subset of line items that may be marked
// tax-deductible. Program service revenue, investment income and other
// revenue are never deductible contributions.
var deductibleLineItems = map[LineItem]struct{}{
	LineItemCashContributions:    {},
	LineItemNonCashContributions: {},
	LineItemReportedElsewhere:    {},
	LineItemRelatedOrganizations: {},
	LineItemGovernmentGrants:     {},
	LineItemOtherContributions:   {},
}

// LineItemDeductible reports whether li may back a tax-deductible category.
func LineItemDeductible(li LineItem) bool {
	_, ok := deductibleLineItems[li]
	return ok
}

// QuidProQuoDisclosure is one entry in the quid pro quo disclosure list:
// a donation partially offset by goods or services received.
type QuidProQuoDisclosure struct {
	DonationID       string          `json:"donationID"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	QuidProQuoValue  decimal.Decimal `json:"quidProQuoValue"`
	DeductibleAmount decimal.Decimal `json:"deductibleAmount"` // TotalAmount - QuidProQuoValue
	Description      string          `json:"description,omitempty"`
}

// RestrictedFundDisclosure groups restricted donations for one category.
type RestrictedFundDisclosure struct {
	CategoryID            string          `json:"categoryID"`
	CategoryName          string          `json:"categoryName"`
	TemporarilyRestricted decimal.Decimal `json:"temporarilyRestricted"`
	PermanentlyRestricted decimal.Decimal `json:"permanentlyRestricted"`
	DonationCount         int64           `json:"donationCount"`
}
