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

type SanitizerServiceTestSuite struct {
	suite.Suite
	service portssvc.SanitizerSvc
}

func (s *SanitizerServiceTestSuite) SetupTest() {
	s.service = services.NewSanitizerService(map[domain.AccessRole][]string{
		domain.RoleFullAccess:      {"donationID", "amount", "donorID", "donorName"},
		domain.RoleAggregateAccess: {"amount", "categoryName", "lineItem"},
	})
}

func sanitizerDonation(donorID *string, anonymous bool) domain.Donation {
	name := "A. Donor"
	d := domain.Donation{
		DonationID:   uuid.NewString(),
		Amount:       decimal.NewFromInt(100),
		DonationDate: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		Method:       domain.MethodCash,
		CategoryID:   uuid.NewString(),
		CategoryName: "Tithe",
		Compliance: domain.ComplianceFields{
			LineItem:        domain.LineItemCashContributions,
			RestrictionType: domain.Unrestricted,
			IsAnonymous:     anonymous,
		},
		DonorID: donorID,
		TaxYear: 2026,
		Status:  domain.DonationVerified,
	}
	if donorID != nil {
		d.DonorName = &name
	}
	return d
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_FullAccessSeesEverything() {
	ctx := context.Background()
	donorID := "donor-1"
	donations := []domain.Donation{sanitizerDonation(&donorID, false)}

	result, err := s.service.SanitizeDonations(ctx, domain.RoleFullAccess, "", donations)

	s.Require().NoError(err)
	s.Require().Len(result.FullRecords, 1)
	s.Require().NotNil(result.FullRecords[0].DonorID)
	s.Equal(donorID, *result.FullRecords[0].DonorID)
	s.Empty(result.AggregateRecords)
	s.Empty(result.SelfRecords)
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_AggregateViewOmitsDonorIdentity() {
	ctx := context.Background()
	donorID := "donor-1"
	donations := []domain.Donation{sanitizerDonation(&donorID, false)}

	result, err := s.service.SanitizeDonations(ctx, domain.RoleAggregateAccess, "", donations)

	s.Require().NoError(err)
	s.Require().Len(result.AggregateRecords, 1)
	record := result.AggregateRecords[0]
	s.True(record.Amount.Equal(decimal.NewFromInt(100)))
	s.Equal("Tithe", record.CategoryName)
	s.Equal(domain.LineItemCashContributions, record.LineItem)
	s.True(record.IsTaxDeductible)
	s.Empty(result.FullRecords)
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_SelfAccessSkipsAnonymous() {
	ctx := context.Background()
	donorID := "donor-1"
	donations := []domain.Donation{
		sanitizerDonation(&donorID, false),
		sanitizerDonation(nil, true), // anonymous, never attributable
		sanitizerDonation(nil, false),
	}

	result, err := s.service.SanitizeDonations(ctx, domain.RoleSelfAccess, donorID, donations)

	s.Require().NoError(err)
	s.Require().Len(result.SelfRecords, 1)
	s.Equal(donations[0].DonationID, result.SelfRecords[0].DonationID)
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_SelfAccessFailsClosedOnForeignRecord() {
	ctx := context.Background()
	mine := "donor-1"
	theirs := "donor-2"
	donations := []domain.Donation{
		sanitizerDonation(&mine, false),
		sanitizerDonation(&theirs, false),
	}

	result, err := s.service.SanitizeDonations(ctx, domain.RoleSelfAccess, mine, donations)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(result)
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_SelfAccessRequiresSubject() {
	ctx := context.Background()
	donorID := "donor-1"

	_, err := s.service.SanitizeDonations(ctx, domain.RoleSelfAccess, "", []domain.Donation{sanitizerDonation(&donorID, false)})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *SanitizerServiceTestSuite) TestSanitizeDonations_RejectsUnknownRole() {
	ctx := context.Background()

	_, err := s.service.SanitizeDonations(ctx, "SUPERUSER", "", nil)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *SanitizerServiceTestSuite) TestSanitizeSummary_RoleProjections() {
	ctx := context.Background()
	summary := &domain.FinancialSummary{
		PeriodStart:    time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		TotalDonations: decimal.NewFromInt(1350),
		DonationCount:  3,
		TopDonorRanges: []domain.DonorRange{{Label: "$1-$99"}},
	}

	full, err := s.service.SanitizeSummary(ctx, domain.RoleFullAccess, "", summary)
	s.Require().NoError(err)
	s.Equal(summary, full.Full)

	aggregate, err := s.service.SanitizeSummary(ctx, domain.RoleAggregateAccess, "", summary)
	s.Require().NoError(err)
	s.Equal(summary, aggregate.Aggregate)

	self, err := s.service.SanitizeSummary(ctx, domain.RoleSelfAccess, "donor-1", summary)
	s.Require().NoError(err)
	s.Require().NotNil(self.Self)
	s.True(self.Self.TotalDonations.Equal(decimal.NewFromInt(1350)))
	// The personal view never exposes organization-wide donor ranges.
	s.Nil(self.Full)
	s.Nil(self.Aggregate)
}

func (s *SanitizerServiceTestSuite) TestExportFields() {
	fields, err := s.service.ExportFields(domain.RoleFullAccess)
	s.Require().NoError(err)
	s.Contains(fields, "donorID")

	// Mutating the returned slice must not leak into the configuration.
	fields[0] = "tampered"
	again, err := s.service.ExportFields(domain.RoleFullAccess)
	s.Require().NoError(err)
	s.Equal("donationID", again[0])

	// No configured whitelist fails closed to an empty list.
	selfFields, err := s.service.ExportFields(domain.RoleSelfAccess)
	s.Require().NoError(err)
	s.Empty(selfFields)

	_, err = s.service.ExportFields("SUPERUSER")
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func TestSanitizerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SanitizerServiceTestSuite))
}
