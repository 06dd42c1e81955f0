package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/core/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
)

type DonorCacheServiceTestSuite struct {
	suite.Suite
	mockDonationRepo *MockDonationRepository
	mockCategoryRepo *MockCategoryRepository
	eventSource      *stubEventSource
	service          portssvc.DonorCacheSvc

	donorID string
	clock   *fakeClock
}

// fakeClock lets tests march time forward past the TTL.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func (s *DonorCacheServiceTestSuite) SetupTest() {
	s.mockDonationRepo = new(MockDonationRepository)
	s.mockCategoryRepo = new(MockCategoryRepository)
	s.eventSource = newStubEventSource()
	s.donorID = uuid.NewString()
	s.clock = &fakeClock{current: time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)}

	s.mockCategoryRepo.On("ListCategories", mock.Anything, false).Return([]domain.Category{}, nil)

	aggregation := services.NewAggregationService(s.mockDonationRepo, s.mockCategoryRepo,
		services.NewComplianceService(s.mockCategoryRepo))
	s.service = services.NewDonorCacheService(
		s.mockDonationRepo,
		aggregation,
		s.eventSource,
		services.WithCacheTTL(5*time.Minute),
		services.WithCacheClock(s.clock.now),
	)
}

func (s *DonorCacheServiceTestSuite) donorDonations(amount int64) []domain.Donation {
	return []domain.Donation{{
		DonationID:   uuid.NewString(),
		Amount:       decimal.NewFromInt(amount),
		DonationDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Method:       domain.MethodCard,
		CategoryID:   uuid.NewString(),
		CategoryName: "Tithe",
		Compliance: domain.ComplianceFields{
			LineItem:        domain.LineItemCashContributions,
			RestrictionType: domain.Unrestricted,
		},
		DonorID: &s.donorID,
		TaxYear: 2026,
		Status:  domain.DonationVerified,
	}}
}

func (s *DonorCacheServiceTestSuite) TestGetDonorView_CachesWithinTTL() {
	ctx := context.Background()

	s.mockDonationRepo.On("ListByDonor", ctx, s.donorID).Return(s.donorDonations(100), nil).Once()

	first, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)
	s.True(first.Summary.TotalDonations.Equal(decimal.NewFromInt(100)))

	s.clock.advance(1 * time.Minute)

	second, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)
	s.Same(first, second)
	s.mockDonationRepo.AssertNumberOfCalls(s.T(), "ListByDonor", 1)

	stats := s.service.Stats()
	s.Equal(int64(1), stats.Hits)
	s.Equal(int64(1), stats.Misses)
	s.Equal(1, stats.Entries)
}

func (s *DonorCacheServiceTestSuite) TestGetDonorView_RefetchesAfterExpiry() {
	ctx := context.Background()

	s.mockDonationRepo.On("ListByDonor", ctx, s.donorID).Return(s.donorDonations(100), nil).Once()
	first, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)

	s.clock.advance(6 * time.Minute)

	s.mockDonationRepo.On("ListByDonor", ctx, s.donorID).Return(s.donorDonations(250), nil).Once()
	second, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)

	s.NotSame(first, second)
	s.True(second.Summary.TotalDonations.Equal(decimal.NewFromInt(250)))
	s.mockDonationRepo.AssertNumberOfCalls(s.T(), "ListByDonor", 2)

	stats := s.service.Stats()
	s.Equal(int64(1), stats.Expired)
}

func (s *DonorCacheServiceTestSuite) TestInvalidate_DropsEntry() {
	ctx := context.Background()

	s.mockDonationRepo.On("ListByDonor", ctx, s.donorID).Return(s.donorDonations(100), nil).Twice()

	_, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)

	s.service.Invalidate(s.donorID)

	_, err = s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)

	s.mockDonationRepo.AssertNumberOfCalls(s.T(), "ListByDonor", 2)
	s.Equal(int64(1), s.service.Stats().Evictions)
}

func (s *DonorCacheServiceTestSuite) TestClear_DropsAllEntries() {
	ctx := context.Background()
	other := uuid.NewString()

	s.mockDonationRepo.On("ListByDonor", ctx, s.donorID).Return(s.donorDonations(100), nil)
	s.mockDonationRepo.On("ListByDonor", ctx, other).Return([]domain.Donation{}, nil)

	_, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)
	_, err = s.service.GetDonorView(ctx, other)
	s.Require().NoError(err)
	s.Equal(2, s.service.Stats().Entries)

	s.service.Clear()

	stats := s.service.Stats()
	s.Equal(0, stats.Entries)
	s.Equal(int64(2), stats.Evictions)
}

func (s *DonorCacheServiceTestSuite) TestWatch_EventOverwritesFreshEntry() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mockDonationRepo.On("ListByDonor", mock.Anything, s.donorID).Return(s.donorDonations(100), nil).Once()
	first, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)
	s.True(first.Summary.TotalDonations.Equal(decimal.NewFromInt(100)))

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.service.Watch(ctx, s.donorID)
	}()

	// A verification lands for the donor; the entry is overwritten even
	// though its TTL has not expired.
	s.mockDonationRepo.On("ListByDonor", mock.Anything, s.donorID).Return(s.donorDonations(600), nil).Once()
	s.eventSource.events <- domain.LedgerEvent{
		Sequence:   1,
		Kind:       domain.EventDonationVerified,
		DonationID: uuid.NewString(),
		CategoryID: uuid.NewString(),
		DonorID:    &s.donorID,
		OccurredAt: s.clock.now(),
	}

	s.Require().Eventually(func() bool {
		return s.service.Stats().EventWrites == 1
	}, 2*time.Second, 10*time.Millisecond)

	second, err := s.service.GetDonorView(ctx, s.donorID)
	s.Require().NoError(err)
	s.True(second.Summary.TotalDonations.Equal(decimal.NewFromInt(600)))

	cancel()
	s.Require().Eventually(func() bool {
		select {
		case <-watchDone:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *DonorCacheServiceTestSuite) TestWatch_IgnoresForeignDonorEvents() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.service.Watch(ctx, s.donorID)
	}()

	other := uuid.NewString()
	s.eventSource.events <- domain.LedgerEvent{
		Sequence: 1,
		Kind:     domain.EventDonationVerified,
		DonorID:  &other,
	}

	// The foreign event must not trigger a ledger query for our donor.
	time.Sleep(50 * time.Millisecond)
	s.mockDonationRepo.AssertNotCalled(s.T(), "ListByDonor", mock.Anything, s.donorID)
	s.Equal(int64(0), s.service.Stats().EventWrites)

	cancel()
	<-watchDone
}

func (s *DonorCacheServiceTestSuite) TestWatch_StreamCloseEndsWatch() {
	ctx := context.Background()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.service.Watch(ctx, s.donorID)
	}()

	close(s.eventSource.events)

	s.Require().Eventually(func() bool {
		select {
		case err := <-watchDone:
			s.NoError(err)
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDonorCacheServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DonorCacheServiceTestSuite))
}
