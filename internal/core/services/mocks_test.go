package services_test

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	"github.com/stretchr/testify/mock"
)

// --- Mock DonationRepository ---
type MockDonationRepository struct {
	mock.Mock
}

// Ensure MockDonationRepository implements portsrepo.DonationRepositoryFacade
var _ portsrepo.DonationRepositoryFacade = (*MockDonationRepository)(nil)

func (m *MockDonationRepository) FindDonationByID(ctx context.Context, donationID string) (*domain.Donation, error) {
	args := m.Called(ctx, donationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListDonations(ctx context.Context, filter portsrepo.DonationListFilter, limit int, nextToken *string) ([]domain.Donation, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Donation), returnedNextToken, args.Error(2)
}

func (m *MockDonationRepository) ListVerifiedByCategory(ctx context.Context, categoryID string) ([]domain.Donation, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	args := m.Called(ctx, donorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Donation), args.Error(1)
}

func (m *MockDonationRepository) SaveDonation(ctx context.Context, donation domain.Donation) error {
	args := m.Called(ctx, donation)
	return args.Error(0)
}

func (m *MockDonationRepository) UpdateDonation(ctx context.Context, donation domain.Donation) error {
	args := m.Called(ctx, donation)
	return args.Error(0)
}

// --- Mock CategoryRepository ---
type MockCategoryRepository struct {
	mock.Mock
}

// Ensure MockCategoryRepository implements portsrepo.CategoryRepositoryFacade
var _ portsrepo.CategoryRepositoryFacade = (*MockCategoryRepository)(nil)

func (m *MockCategoryRepository) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryRepository) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCategoryRepository) CountDonationsForCategory(ctx context.Context, categoryID string) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) SaveCategory(ctx context.Context, category domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) UpdateCategory(ctx context.Context, category domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) UpdateCategoryStatistics(ctx context.Context, categoryID string, stats domain.CategoryStatistics, updatedBy string) error {
	args := m.Called(ctx, categoryID, stats, updatedBy)
	return args.Error(0)
}

func (m *MockCategoryRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	args := m.Called(ctx, categoryID)
	return args.Error(0)
}

// --- Mock LedgerEventPublisher ---
type MockEventPublisher struct {
	mock.Mock
}

var _ portsrepo.LedgerEventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) PublishEvent(ctx context.Context, event domain.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- Channel-backed LedgerEventSource ---
// Watch tests drive events by hand, so a plain channel beats a mock here.
type stubEventSource struct {
	events chan domain.LedgerEvent
}

var _ portsrepo.LedgerEventSource = (*stubEventSource)(nil)

func newStubEventSource() *stubEventSource {
	return &stubEventSource{events: make(chan domain.LedgerEvent, 8)}
}

func (s *stubEventSource) SubscribeDonor(ctx context.Context, donorID string) (<-chan domain.LedgerEvent, error) {
	return s.events, nil
}
