package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/core/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
)

type ComplianceServiceTestSuite struct {
	suite.Suite
	mockCategoryRepo *MockCategoryRepository
	service          portssvc.ComplianceSvc
}

func (s *ComplianceServiceTestSuite) SetupTest() {
	s.mockCategoryRepo = new(MockCategoryRepository)
	s.service = services.NewComplianceService(s.mockCategoryRepo)
}

func (s *ComplianceServiceTestSuite) TestValidateCategoryTaxonomy() {
	valid := domain.Category{
		DefaultLineItem: domain.LineItemCashContributions,
		IsTaxDeductible: true,
	}
	s.NoError(s.service.ValidateCategoryTaxonomy(valid))

	unknown := domain.Category{DefaultLineItem: "LINE_9Z"}
	s.ErrorIs(s.service.ValidateCategoryTaxonomy(unknown), apperrors.ErrValidation)

	// Program service revenue is never a deductible contribution.
	incoherent := domain.Category{
		DefaultLineItem: domain.LineItemProgramServiceRevenue,
		IsTaxDeductible: true,
	}
	s.ErrorIs(s.service.ValidateCategoryTaxonomy(incoherent), apperrors.ErrValidation)

	nonDeductible := domain.Category{
		DefaultLineItem: domain.LineItemProgramServiceRevenue,
		IsTaxDeductible: false,
	}
	s.NoError(s.service.ValidateCategoryTaxonomy(nonDeductible))
}

func complianceDonation(amount int64) domain.Donation {
	return domain.Donation{
		DonationID: uuid.NewString(),
		Amount:     decimal.NewFromInt(amount),
		Compliance: domain.ComplianceFields{
			LineItem:        domain.LineItemCashContributions,
			RestrictionType: domain.Unrestricted,
		},
		Status: domain.DonationVerified,
	}
}

func (s *ComplianceServiceTestSuite) TestValidateDonationCompliance_QuidProQuo() {
	value := decimal.NewFromInt(150)

	ok := complianceDonation(2500)
	ok.Compliance.IsQuidProQuo = true
	ok.Compliance.QuidProQuoValue = &value
	s.NoError(s.service.ValidateDonationCompliance(ok))

	missing := complianceDonation(2500)
	missing.Compliance.IsQuidProQuo = true
	s.ErrorIs(s.service.ValidateDonationCompliance(missing), apperrors.ErrValidation)

	tooLarge := complianceDonation(100)
	tooLarge.Compliance.IsQuidProQuo = true
	tooLarge.Compliance.QuidProQuoValue = &value
	s.ErrorIs(s.service.ValidateDonationCompliance(tooLarge), apperrors.ErrValidation)

	orphanValue := complianceDonation(2500)
	orphanValue.Compliance.QuidProQuoValue = &value
	s.ErrorIs(s.service.ValidateDonationCompliance(orphanValue), apperrors.ErrValidation)
}

func (s *ComplianceServiceTestSuite) TestValidateDonationCompliance_Taxonomy() {
	badLine := complianceDonation(50)
	badLine.Compliance.LineItem = "NOT_A_LINE"
	s.ErrorIs(s.service.ValidateDonationCompliance(badLine), apperrors.ErrValidation)

	badRestriction := complianceDonation(50)
	badRestriction.Compliance.RestrictionType = "SORT_OF_RESTRICTED"
	s.ErrorIs(s.service.ValidateDonationCompliance(badRestriction), apperrors.ErrValidation)
}

func (s *ComplianceServiceTestSuite) TestResolveLineItem_FallbackChain() {
	category := &domain.Category{DefaultLineItem: domain.LineItemNonCashContributions}

	own := complianceDonation(10)
	s.Equal(domain.LineItemCashContributions, s.service.ResolveLineItem(own, category))

	blank := complianceDonation(10)
	blank.Compliance.LineItem = ""
	s.Equal(domain.LineItemNonCashContributions, s.service.ResolveLineItem(blank, category))

	s.Equal(domain.LineItemNotApplicable, s.service.ResolveLineItem(blank, nil))

	badDefault := &domain.Category{DefaultLineItem: "LEGACY_LINE"}
	s.Equal(domain.LineItemNotApplicable, s.service.ResolveLineItem(blank, badDefault))
}

func (s *ComplianceServiceTestSuite) TestQuidProQuoDisclosures() {
	value := decimal.NewFromInt(150)

	gala := complianceDonation(2500)
	gala.Compliance.IsQuidProQuo = true
	gala.Compliance.QuidProQuoValue = &value
	gala.Compliance.QuidProQuoDesc = "Gala dinner"

	plain := complianceDonation(500)

	pending := complianceDonation(1000)
	pending.Status = domain.DonationPending
	pending.Compliance.IsQuidProQuo = true
	pending.Compliance.QuidProQuoValue = &value

	disclosures := s.service.QuidProQuoDisclosures([]domain.Donation{gala, plain, pending})

	s.Require().Len(disclosures, 1)
	s.Equal(gala.DonationID, disclosures[0].DonationID)
	s.True(disclosures[0].DeductibleAmount.Equal(decimal.NewFromInt(2350)))
	s.Equal("Gala dinner", disclosures[0].Description)
}

func (s *ComplianceServiceTestSuite) TestRestrictedFundDisclosures_GroupsAndSorts() {
	ctx := context.Background()

	missions := domain.Category{CategoryID: uuid.NewString(), Name: "Missions"}
	building := domain.Category{CategoryID: uuid.NewString(), Name: "Building Fund"}

	d1 := complianceDonation(1000)
	d1.CategoryID = missions.CategoryID
	d1.Compliance.RestrictionType = domain.TemporarilyRestricted

	d2 := complianceDonation(500)
	d2.CategoryID = missions.CategoryID
	d2.Compliance.RestrictionType = domain.PermanentlyRestricted

	d3 := complianceDonation(250)
	d3.CategoryID = building.CategoryID
	d3.Compliance.RestrictionType = domain.TemporarilyRestricted

	unrestricted := complianceDonation(9000)
	unrestricted.CategoryID = missions.CategoryID

	s.mockCategoryRepo.On("FindCategoryByID", ctx, missions.CategoryID).Return(&missions, nil).Once()
	s.mockCategoryRepo.On("FindCategoryByID", ctx, building.CategoryID).Return(&building, nil).Once()

	disclosures, err := s.service.RestrictedFundDisclosures(ctx, []domain.Donation{d1, d2, d3, unrestricted})

	s.Require().NoError(err)
	s.Require().Len(disclosures, 2)
	// Sorted by category name.
	s.Equal("Building Fund", disclosures[0].CategoryName)
	s.True(disclosures[0].TemporarilyRestricted.Equal(decimal.NewFromInt(250)))
	s.Equal(int64(1), disclosures[0].DonationCount)

	s.Equal("Missions", disclosures[1].CategoryName)
	s.True(disclosures[1].TemporarilyRestricted.Equal(decimal.NewFromInt(1000)))
	s.True(disclosures[1].PermanentlyRestricted.Equal(decimal.NewFromInt(500)))
	s.Equal(int64(2), disclosures[1].DonationCount)
}

func (s *ComplianceServiceTestSuite) TestRestrictedFundDisclosures_FallsBackToDenormalizedName() {
	ctx := context.Background()

	d := complianceDonation(100)
	d.CategoryID = uuid.NewString()
	d.CategoryName = "Legacy Fund"
	d.Compliance.RestrictionType = domain.TemporarilyRestricted
	d.DonationDate = time.Now().UTC()

	s.mockCategoryRepo.On("FindCategoryByID", ctx, d.CategoryID).Return(nil, apperrors.ErrNotFound).Once()

	disclosures, err := s.service.RestrictedFundDisclosures(ctx, []domain.Donation{d})

	s.Require().NoError(err)
	s.Require().Len(disclosures, 1)
	s.Equal("Legacy Fund", disclosures[0].CategoryName)
}

func TestComplianceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ComplianceServiceTestSuite))
}
