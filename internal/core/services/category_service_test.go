package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/core/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
)

type CategoryServiceTestSuite struct {
	suite.Suite
	mockCategoryRepo *MockCategoryRepository
	mockDonationRepo *MockDonationRepository
	service          portssvc.CategorySvcFacade

	userID string
	nowFn  func() time.Time
}

func (s *CategoryServiceTestSuite) SetupTest() {
	s.mockCategoryRepo = new(MockCategoryRepository)
	s.mockDonationRepo = new(MockDonationRepository)
	s.userID = uuid.NewString()
	s.nowFn = func() time.Time {
		return time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	}

	compliance := services.NewComplianceService(s.mockCategoryRepo)
	s.service = services.NewCategoryService(
		s.mockCategoryRepo,
		s.mockDonationRepo,
		compliance,
		services.WithCategoryClock(s.nowFn),
	)
}

func (s *CategoryServiceTestSuite) validCreateRequest() dto.CreateCategoryRequest {
	return dto.CreateCategoryRequest{
		Name:            "Tithe",
		DefaultLineItem: domain.LineItemCashContributions,
		IsTaxDeductible: true,
		DisplayOrder:    1,
	}
}

func (s *CategoryServiceTestSuite) TestCreateCategory_Success() {
	ctx := context.Background()
	req := s.validCreateRequest()

	s.mockCategoryRepo.On("FindCategoryByName", ctx, "Tithe").Return(nil, apperrors.ErrNotFound).Once()
	s.mockCategoryRepo.On("ListCategories", ctx, true).Return([]domain.Category{}, nil).Once()
	s.mockCategoryRepo.On("SaveCategory", ctx, mock.AnythingOfType("domain.Category")).Return(nil).Once()

	category, err := s.service.CreateCategory(ctx, req, s.userID)

	s.Require().NoError(err)
	s.NotEmpty(category.CategoryID)
	s.True(category.IsActive)
	s.True(category.Statistics.TotalAmount.IsZero())
	s.Equal(int64(0), category.Statistics.DonationCount)
	s.mockCategoryRepo.AssertExpectations(s.T())
}

func (s *CategoryServiceTestSuite) TestCreateCategory_RejectsDuplicateName() {
	ctx := context.Background()
	req := s.validCreateRequest()
	existing := domain.Category{CategoryID: uuid.NewString(), Name: "Tithe"}

	s.mockCategoryRepo.On("FindCategoryByName", ctx, "Tithe").Return(&existing, nil).Once()

	_, err := s.service.CreateCategory(ctx, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrDuplicate)
}

func (s *CategoryServiceTestSuite) TestCreateCategory_RejectsDuplicateDisplayOrder() {
	ctx := context.Background()
	req := s.validCreateRequest()
	other := domain.Category{CategoryID: uuid.NewString(), Name: "Missions", DisplayOrder: 1, IsActive: true}

	s.mockCategoryRepo.On("FindCategoryByName", ctx, "Tithe").Return(nil, apperrors.ErrNotFound).Once()
	s.mockCategoryRepo.On("ListCategories", ctx, true).Return([]domain.Category{other}, nil).Once()

	_, err := s.service.CreateCategory(ctx, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *CategoryServiceTestSuite) TestCreateCategory_RejectsIncoherentTaxonomy() {
	ctx := context.Background()
	req := s.validCreateRequest()
	req.DefaultLineItem = domain.LineItemInvestmentIncome
	req.IsTaxDeductible = true

	_, err := s.service.CreateCategory(ctx, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockCategoryRepo.AssertNotCalled(s.T(), "SaveCategory", mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestDeactivateCategory_Idempotent() {
	ctx := context.Background()
	inactive := domain.Category{CategoryID: uuid.NewString(), Name: "Old Fund", IsActive: false}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, inactive.CategoryID).Return(&inactive, nil).Once()

	err := s.service.DeactivateCategory(ctx, inactive.CategoryID, s.userID)

	s.Require().NoError(err)
	s.mockCategoryRepo.AssertNotCalled(s.T(), "UpdateCategory", mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestDeleteCategory_RejectsReferenced() {
	ctx := context.Background()
	categoryID := uuid.NewString()

	s.mockCategoryRepo.On("CountDonationsForCategory", ctx, categoryID).Return(int64(3), nil).Once()

	err := s.service.DeleteCategory(ctx, categoryID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.mockCategoryRepo.AssertNotCalled(s.T(), "DeleteCategory", mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestDeleteCategory_RemovesUnreferenced() {
	ctx := context.Background()
	categoryID := uuid.NewString()

	s.mockCategoryRepo.On("CountDonationsForCategory", ctx, categoryID).Return(int64(0), nil).Once()
	s.mockCategoryRepo.On("DeleteCategory", ctx, categoryID).Return(nil).Once()

	err := s.service.DeleteCategory(ctx, categoryID, s.userID)

	s.Require().NoError(err)
	s.mockCategoryRepo.AssertExpectations(s.T())
}

// --- statistics updater ---

func (s *CategoryServiceTestSuite) statsCategory(stats domain.CategoryStatistics) domain.Category {
	return domain.Category{
		CategoryID:      uuid.NewString(),
		Name:            "Tithe",
		DefaultLineItem: domain.LineItemCashContributions,
		IsTaxDeductible: true,
		IsActive:        true,
		DisplayOrder:    1,
		Statistics:      stats,
	}
}

func (s *CategoryServiceTestSuite) verifiedDonation(categoryID string, amount int64, taxYear int) *domain.Donation {
	return &domain.Donation{
		DonationID:   uuid.NewString(),
		Amount:       decimal.NewFromInt(amount),
		DonationDate: time.Date(taxYear, time.March, 10, 0, 0, 0, 0, time.UTC),
		Method:       domain.MethodCheck,
		CategoryID:   categoryID,
		TaxYear:      taxYear,
		Status:       domain.DonationVerified,
	}
}

func (s *CategoryServiceTestSuite) TestApplyDonationEvent_VerifiedAddsToTotals() {
	ctx := context.Background()
	category := s.statsCategory(domain.ZeroStatistics())
	donation := s.verifiedDonation(category.CategoryID, 500, 2026)

	event := domain.LedgerEvent{
		Sequence:   1,
		Kind:       domain.EventDonationVerified,
		DonationID: donation.DonationID,
		CategoryID: category.CategoryID,
		OccurredAt: s.nowFn(),
	}

	s.mockDonationRepo.On("FindDonationByID", ctx, donation.DonationID).Return(donation, nil).Once()
	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "statistics-updater").Return(nil).Once()

	stats, err := s.service.ApplyDonationEvent(ctx, event)

	s.Require().NoError(err)
	s.True(stats.TotalAmount.Equal(decimal.NewFromInt(500)))
	s.Equal(int64(1), stats.DonationCount)
	s.True(stats.AverageDonation.Equal(decimal.NewFromInt(500)))
	s.True(stats.CurrentYearTotal.Equal(decimal.NewFromInt(500)))
	s.Require().NotNil(stats.LastDonationDate)
	s.True(stats.LastDonationDate.Equal(donation.DonationDate))
}

func (s *CategoryServiceTestSuite) TestApplyDonationEvent_ReversalSubtracts() {
	ctx := context.Background()
	start := domain.CategoryStatistics{
		TotalAmount:      decimal.NewFromInt(2000),
		DonationCount:    5,
		AverageDonation:  decimal.NewFromInt(400),
		CurrentYearTotal: decimal.NewFromInt(2000),
		LastYearTotal:    decimal.Zero,
	}
	lastDate := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	start.LastDonationDate = &lastDate
	category := s.statsCategory(start)
	donation := s.verifiedDonation(category.CategoryID, 500, 2026)

	event := domain.LedgerEvent{
		Sequence:   7,
		Kind:       domain.EventDonationVoided,
		DonationID: donation.DonationID,
		CategoryID: category.CategoryID,
		OccurredAt: s.nowFn(),
	}

	s.mockDonationRepo.On("FindDonationByID", ctx, donation.DonationID).Return(donation, nil).Once()
	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "statistics-updater").Return(nil).Once()

	stats, err := s.service.ApplyDonationEvent(ctx, event)

	s.Require().NoError(err)
	s.True(stats.TotalAmount.Equal(decimal.NewFromInt(1500)))
	s.Equal(int64(4), stats.DonationCount)
	s.True(stats.AverageDonation.Equal(decimal.NewFromInt(375)))
	// A reversal never rewinds the last donation date.
	s.Require().NotNil(stats.LastDonationDate)
	s.True(stats.LastDonationDate.Equal(lastDate))
}

func (s *CategoryServiceTestSuite) TestApplyDonationEvent_SkipsReplayedSequence() {
	ctx := context.Background()
	category := s.statsCategory(domain.ZeroStatistics())
	donation := s.verifiedDonation(category.CategoryID, 100, 2026)

	event := domain.LedgerEvent{
		Sequence:   3,
		Kind:       domain.EventDonationVerified,
		DonationID: donation.DonationID,
		CategoryID: category.CategoryID,
	}

	s.mockDonationRepo.On("FindDonationByID", ctx, donation.DonationID).Return(donation, nil).Once()
	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil)
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "statistics-updater").Return(nil).Once()

	_, err := s.service.ApplyDonationEvent(ctx, event)
	s.Require().NoError(err)

	// The same sequence replayed must not be applied twice.
	_, err = s.service.ApplyDonationEvent(ctx, event)
	s.Require().NoError(err)

	s.mockCategoryRepo.AssertNumberOfCalls(s.T(), "UpdateCategoryStatistics", 1)
}

func (s *CategoryServiceTestSuite) TestApplyDonationEvent_CreateEventDoesNotMutate() {
	ctx := context.Background()
	category := s.statsCategory(domain.ZeroStatistics())

	event := domain.LedgerEvent{
		Sequence:   1,
		Kind:       domain.EventDonationCreated,
		DonationID: uuid.NewString(),
		CategoryID: category.CategoryID,
	}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()

	stats, err := s.service.ApplyDonationEvent(ctx, event)

	s.Require().NoError(err)
	s.True(stats.TotalAmount.IsZero())
	s.mockCategoryRepo.AssertNotCalled(s.T(), "UpdateCategoryStatistics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestApplyDonationEvent_ConcurrentVerificationsAllCounted() {
	ctx := context.Background()
	category := s.statsCategory(domain.ZeroStatistics())
	donation := s.verifiedDonation(category.CategoryID, 10, 2026)

	s.mockDonationRepo.On("FindDonationByID", ctx, donation.DonationID).Return(donation, nil)
	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil)
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "statistics-updater").
		Run(func(args mock.Arguments) {
			// Persisting writes back into the shared fixture so the next
			// applier reads the updated row, the way the database would
			// behave. The per-category lock serializes these writes.
			category.Statistics = args.Get(2).(domain.CategoryStatistics)
		}).
		Return(nil)

	const n = 25
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(seq int64) {
			defer wg.Done()
			_, err := s.service.ApplyDonationEvent(ctx, domain.LedgerEvent{
				Sequence:   seq,
				Kind:       domain.EventDonationVerified,
				DonationID: donation.DonationID,
				CategoryID: category.CategoryID,
				OccurredAt: s.nowFn(),
			})
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(int64(n), category.Statistics.DonationCount)
	s.True(category.Statistics.TotalAmount.Equal(decimal.NewFromInt(10 * n)))
	s.mockCategoryRepo.AssertNumberOfCalls(s.T(), "UpdateCategoryStatistics", n)
}

func (s *CategoryServiceTestSuite) TestRecalculate_AgreementPersists() {
	ctx := context.Background()
	start := domain.CategoryStatistics{
		TotalAmount:      decimal.NewFromInt(350),
		DonationCount:    2,
		AverageDonation:  decimal.NewFromInt(175),
		CurrentYearTotal: decimal.NewFromInt(350),
		LastYearTotal:    decimal.Zero,
	}
	category := s.statsCategory(start)
	donations := []domain.Donation{
		*s.verifiedDonation(category.CategoryID, 100, 2026),
		*s.verifiedDonation(category.CategoryID, 250, 2026),
	}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()
	s.mockDonationRepo.On("ListVerifiedByCategory", ctx, category.CategoryID).Return(donations, nil).Once()
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "reconciliation").Return(nil).Once()

	stats, err := s.service.Recalculate(ctx, category.CategoryID)

	s.Require().NoError(err)
	s.True(stats.TotalAmount.Equal(decimal.NewFromInt(350)))
	s.Equal(int64(2), stats.DonationCount)
	s.True(stats.AverageDonation.Equal(decimal.NewFromInt(175)))
	s.mockCategoryRepo.AssertExpectations(s.T())
}

func (s *CategoryServiceTestSuite) TestRecalculate_DriftRaisesConsistencyError() {
	ctx := context.Background()
	drifted := domain.CategoryStatistics{
		TotalAmount:     decimal.NewFromInt(999),
		DonationCount:   2,
		AverageDonation: decimal.RequireFromString("499.50"),
	}
	category := s.statsCategory(drifted)
	donations := []domain.Donation{
		*s.verifiedDonation(category.CategoryID, 100, 2026),
		*s.verifiedDonation(category.CategoryID, 250, 2026),
	}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()
	s.mockDonationRepo.On("ListVerifiedByCategory", ctx, category.CategoryID).Return(donations, nil).Once()

	stats, err := s.service.Recalculate(ctx, category.CategoryID)

	s.Require().Error(err)
	var consistencyErr *apperrors.ConsistencyError
	s.Require().ErrorAs(err, &consistencyErr)
	s.Equal(category.CategoryID, consistencyErr.CategoryID)
	s.True(consistencyErr.Incremental.Equal(decimal.NewFromInt(999)))
	s.True(consistencyErr.Recalculated.Equal(decimal.NewFromInt(350)))

	// The corrected totals come back for inspection, but nothing is persisted.
	s.Require().NotNil(stats)
	s.True(stats.TotalAmount.Equal(decimal.NewFromInt(350)))
	s.mockCategoryRepo.AssertNotCalled(s.T(), "UpdateCategoryStatistics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestRecalculate_YearBucketDriftRaisesConsistencyError() {
	ctx := context.Background()
	// Grand total and count agree; only the current-year bucket drifted.
	drifted := domain.CategoryStatistics{
		TotalAmount:      decimal.NewFromInt(350),
		DonationCount:    2,
		AverageDonation:  decimal.NewFromInt(175),
		CurrentYearTotal: decimal.NewFromInt(100),
		LastYearTotal:    decimal.Zero,
	}
	category := s.statsCategory(drifted)
	donations := []domain.Donation{
		*s.verifiedDonation(category.CategoryID, 100, 2026),
		*s.verifiedDonation(category.CategoryID, 250, 2026),
	}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Once()
	s.mockDonationRepo.On("ListVerifiedByCategory", ctx, category.CategoryID).Return(donations, nil).Once()

	stats, err := s.service.Recalculate(ctx, category.CategoryID)

	s.Require().Error(err)
	var consistencyErr *apperrors.ConsistencyError
	s.Require().ErrorAs(err, &consistencyErr)
	s.Require().NotNil(stats)
	s.True(stats.CurrentYearTotal.Equal(decimal.NewFromInt(350)))
	s.mockCategoryRepo.AssertNotCalled(s.T(), "UpdateCategoryStatistics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestRecalculate_OrderIndependent() {
	ctx := context.Background()
	start := domain.CategoryStatistics{
		TotalAmount:      decimal.NewFromInt(600),
		DonationCount:    3,
		AverageDonation:  decimal.NewFromInt(200),
		CurrentYearTotal: decimal.NewFromInt(600),
		LastYearTotal:    decimal.Zero,
	}
	category := s.statsCategory(start)
	donations := []domain.Donation{
		*s.verifiedDonation(category.CategoryID, 100, 2026),
		*s.verifiedDonation(category.CategoryID, 250, 2026),
		*s.verifiedDonation(category.CategoryID, 250, 2026),
	}
	reversed := []domain.Donation{donations[2], donations[1], donations[0]}

	s.mockCategoryRepo.On("FindCategoryByID", ctx, category.CategoryID).Return(&category, nil).Twice()
	s.mockDonationRepo.On("ListVerifiedByCategory", ctx, category.CategoryID).Return(donations, nil).Once()
	s.mockDonationRepo.On("ListVerifiedByCategory", ctx, category.CategoryID).Return(reversed, nil).Once()
	s.mockCategoryRepo.On("UpdateCategoryStatistics", ctx, category.CategoryID,
		mock.AnythingOfType("domain.CategoryStatistics"), "reconciliation").Return(nil).Twice()

	first, err := s.service.Recalculate(ctx, category.CategoryID)
	s.Require().NoError(err)
	second, err := s.service.Recalculate(ctx, category.CategoryID)
	s.Require().NoError(err)

	s.True(first.TotalAmount.Equal(second.TotalAmount))
	s.Equal(first.DonationCount, second.DonationCount)
	s.True(first.AverageDonation.Equal(second.AverageDonation))
	s.True(first.CurrentYearTotal.Equal(second.CurrentYearTotal))
}

func TestCategoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CategoryServiceTestSuite))
}
