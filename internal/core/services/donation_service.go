package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/faithledger/donation_engine/internal/utils/currency"
)

// donationService provides core donation ledger lifecycle operations.
type donationService struct {
	BaseService
	donationRepo  portsrepo.DonationRepositoryFacade
	categoryRepo  portsrepo.CategoryReader
	complianceSvc portssvc.ComplianceSvc
	statsSvc      portssvc.CategoryStatsSvc
	eventSink     portsrepo.LedgerEventPublisher

	amountCeiling           decimal.Decimal
	allowInactiveCategories bool

	eventSeq atomic.Int64
}

// DonationServiceOption is a functional option for configuring the donation
// service.
type DonationServiceOption func(*donationService)

// WithAmountCeiling sets the maximum accepted donation amount.
func WithAmountCeiling(ceiling decimal.Decimal) DonationServiceOption {
	return func(s *donationService) {
		if ceiling.GreaterThan(decimal.Zero) {
			s.amountCeiling = ceiling
		}
	}
}

// WithInactiveCategoryDonations controls whether deactivated categories may
// still receive new donations (they stay hidden from pickers either way).
func WithInactiveCategoryDonations(allow bool) DonationServiceOption {
	return func(s *donationService) {
		s.allowInactiveCategories = allow
	}
}

// WithEventPublisher sets the ledger change event sink.
func WithEventPublisher(sink portsrepo.LedgerEventPublisher) DonationServiceOption {
	return func(s *donationService) {
		s.eventSink = sink
	}
}

// defaultAmountCeiling guards against fat-finger entries when no ceiling is
// configured.
var defaultAmountCeiling = decimal.NewFromInt(1_000_000)

// NewDonationService creates a new donation ledger service.
func NewDonationService(
	donationRepo portsrepo.DonationRepositoryFacade,
	categoryRepo portsrepo.CategoryReader,
	complianceSvc portssvc.ComplianceSvc,
	statsSvc portssvc.CategoryStatsSvc,
	options ...DonationServiceOption,
) portssvc.DonationSvcFacade {
	svc := &donationService{
		donationRepo:  donationRepo,
		categoryRepo:  categoryRepo,
		complianceSvc: complianceSvc,
		statsSvc:      statsSvc,
		amountCeiling: defaultAmountCeiling,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.DonationSvcFacade = (*donationService)(nil)

// CreateDonation validates and persists a new donation in the pending state.
func (s *donationService) CreateDonation(ctx context.Context, req dto.CreateDonationRequest, creatorUserID string) (*domain.Donation, error) {
	now := time.Now().UTC()

	category, err := s.categoryRepo.FindCategoryByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("category", fmt.Sprintf("category %s does not exist", req.CategoryID))
		}
		s.LogError(ctx, err, "Failed to fetch category for donation create", "category_id", req.CategoryID)
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	if !category.IsActive && !s.allowInactiveCategories {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("category %s is deactivated", category.Name))
	}

	donation := domain.Donation{
		DonationID:   uuid.NewString(),
		Amount:       req.Amount,
		DonationDate: req.DonationDate,
		Method:       req.Method,
		CategoryID:   category.CategoryID,
		CategoryName: category.Name,
		Compliance: domain.ComplianceFields{
			LineItem:           req.Compliance.LineItem,
			IsQuidProQuo:       req.Compliance.IsQuidProQuo,
			QuidProQuoValue:    req.Compliance.QuidProQuoValue,
			QuidProQuoDesc:     req.Compliance.QuidProQuoDesc,
			IsAnonymous:        req.Compliance.IsAnonymous,
			RestrictionType:    req.Compliance.RestrictionType,
			FairMarketValue:    req.Compliance.FairMarketValue,
			DonorProvidedValue: req.Compliance.DonorProvidedValue,
		},
		DonorID:   req.DonorID,
		DonorName: req.DonorName,
		TaxYear:   req.DonationDate.Year(),
		Status:    domain.DonationPending,
		Notes:     req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if donation.Compliance.RestrictionType == "" {
		donation.Compliance.RestrictionType = domain.Unrestricted
	}

	// Anonymous gifts never carry donor identity, not even blanked values.
	if donation.Compliance.IsAnonymous {
		donation.DonorID = nil
		donation.DonorName = nil
	}

	if err := s.validateDonation(&donation, now); err != nil {
		return nil, err
	}

	if err := s.donationRepo.SaveDonation(ctx, donation); err != nil {
		s.LogError(ctx, err, "Failed to save donation", "category_id", donation.CategoryID)
		return nil, fmt.Errorf("failed to save donation: %w", err)
	}

	s.publishEvent(ctx, domain.EventDonationCreated, &donation)
	s.LogInfo(ctx, "Donation created", "donation_id", donation.DonationID, "category_id", donation.CategoryID)
	return &donation, nil
}

// GetDonationByID retrieves a donation by its identifier.
func (s *donationService) GetDonationByID(ctx context.Context, donationID string) (*domain.Donation, error) {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find donation", "donation_id", donationID)
		}
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	return donation, nil
}

// ListDonations retrieves a filtered, token-paginated donation page.
func (s *donationService) ListDonations(ctx context.Context, params dto.ListDonationsParams) ([]domain.Donation, *string, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := portsrepo.DonationListFilter{
		CategoryID:  params.CategoryID,
		DonorID:     params.DonorID,
		Status:      params.Status,
		PeriodStart: params.PeriodStart,
		PeriodEnd:   params.PeriodEnd,
	}

	donations, nextToken, err := s.donationRepo.ListDonations(ctx, filter, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list donations")
		return nil, nil, fmt.Errorf("failed to retrieve donations: %w", err)
	}
	return donations, nextToken, nil
}

// UpdateDonation updates a pending donation after full revalidation.
// Verified donations are immutable; only void/refund transitions apply.
func (s *donationService) UpdateDonation(ctx context.Context, donationID string, req dto.UpdateDonationRequest, updaterUserID string) (*domain.Donation, error) {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	if donation.Status != domain.DonationPending {
		return nil, fmt.Errorf("%w: donation status is %s, only pending donations may be edited", apperrors.ErrConflict, donation.Status)
	}

	now := time.Now().UTC()

	if req.Amount != nil {
		donation.Amount = *req.Amount
	}
	if req.DonationDate != nil {
		donation.DonationDate = *req.DonationDate
		donation.TaxYear = req.DonationDate.Year()
	}
	if req.Method != nil {
		donation.Method = *req.Method
	}
	if req.CategoryID != nil && *req.CategoryID != donation.CategoryID {
		category, err := s.categoryRepo.FindCategoryByID(ctx, *req.CategoryID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError("category", fmt.Sprintf("category %s does not exist", *req.CategoryID))
			}
			return nil, fmt.Errorf("failed to fetch category: %w", err)
		}
		if !category.IsActive && !s.allowInactiveCategories {
			return nil, apperrors.NewValidationError("category", fmt.Sprintf("category %s is deactivated", category.Name))
		}
		donation.CategoryID = category.CategoryID
		donation.CategoryName = category.Name
	}
	if req.Compliance != nil {
		donation.Compliance = domain.ComplianceFields{
			LineItem:           req.Compliance.LineItem,
			IsQuidProQuo:       req.Compliance.IsQuidProQuo,
			QuidProQuoValue:    req.Compliance.QuidProQuoValue,
			QuidProQuoDesc:     req.Compliance.QuidProQuoDesc,
			IsAnonymous:        req.Compliance.IsAnonymous,
			RestrictionType:    req.Compliance.RestrictionType,
			FairMarketValue:    req.Compliance.FairMarketValue,
			DonorProvidedValue: req.Compliance.DonorProvidedValue,
		}
		if donation.Compliance.RestrictionType == "" {
			donation.Compliance.RestrictionType = domain.Unrestricted
		}
	}
	if req.DonorID != nil {
		donation.DonorID = req.DonorID
	}
	if req.DonorName != nil {
		donation.DonorName = req.DonorName
	}
	if req.Notes != nil {
		donation.Notes = *req.Notes
	}

	if donation.Compliance.IsAnonymous {
		donation.DonorID = nil
		donation.DonorName = nil
	}

	if err := s.validateDonation(donation, now); err != nil {
		return nil, err
	}

	donation.LastUpdatedAt = now
	donation.LastUpdatedBy = updaterUserID

	if err := s.donationRepo.UpdateDonation(ctx, *donation); err != nil {
		s.LogError(ctx, err, "Failed to update donation", "donation_id", donationID)
		return nil, fmt.Errorf("failed to update donation: %w", err)
	}

	s.publishEvent(ctx, domain.EventDonationUpdated, donation)
	s.LogInfo(ctx, "Donation updated", "donation_id", donationID)
	return donation, nil
}

// VerifyDonation transitions a pending donation to verified and applies it
// to the referenced category's running statistics. Only verified donations
// count toward totals and compliance reports.
func (s *donationService) VerifyDonation(ctx context.Context, donationID string, verifierUserID string) (*domain.Donation, error) {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	if donation.Status != domain.DonationPending {
		return nil, fmt.Errorf("%w: donation status is %s, expected PENDING", apperrors.ErrConflict, donation.Status)
	}
	if verifierUserID == "" {
		return nil, apperrors.NewValidationError("verifiedBy", "verification requires a verifier identity")
	}

	now := time.Now().UTC()
	donation.Status = domain.DonationVerified
	donation.VerifiedAt = &now
	donation.VerifiedBy = &verifierUserID
	donation.LastUpdatedAt = now
	donation.LastUpdatedBy = verifierUserID

	if err := s.donationRepo.UpdateDonation(ctx, *donation); err != nil {
		s.LogError(ctx, err, "Failed to persist donation verification", "donation_id", donationID)
		return nil, fmt.Errorf("failed to verify donation: %w", err)
	}

	event := s.publishEvent(ctx, domain.EventDonationVerified, donation)
	if _, err := s.statsSvc.ApplyDonationEvent(ctx, event); err != nil {
		// Statistics lag behind the ledger until reconciliation; the
		// verification itself stands.
		s.LogError(ctx, err, "Failed to apply verification to category statistics",
			"donation_id", donationID, "category_id", donation.CategoryID)
	}

	s.LogInfo(ctx, "Donation verified", "donation_id", donationID, "verified_by", verifierUserID)
	return donation, nil
}

// VoidDonation transitions a verified donation to void and reverses its
// contribution to category statistics. The record stays in the ledger.
func (s *donationService) VoidDonation(ctx context.Context, donationID string, userID string) (*domain.Donation, error) {
	return s.reverseDonation(ctx, donationID, userID, domain.DonationVoid, domain.EventDonationVoided)
}

// RefundDonation transitions a verified donation to refunded and reverses
// its contribution to category statistics.
func (s *donationService) RefundDonation(ctx context.Context, donationID string, userID string) (*domain.Donation, error) {
	return s.reverseDonation(ctx, donationID, userID, domain.DonationRefunded, domain.EventDonationRefunded)
}

func (s *donationService) reverseDonation(ctx context.Context, donationID, userID string, target domain.DonationStatus, kind domain.LedgerEventKind) (*domain.Donation, error) {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	if donation.Status != domain.DonationVerified {
		return nil, fmt.Errorf("%w: donation status is %s, expected VERIFIED", apperrors.ErrConflict, donation.Status)
	}

	now := time.Now().UTC()
	donation.Status = target
	donation.LastUpdatedAt = now
	donation.LastUpdatedBy = userID

	if err := s.donationRepo.UpdateDonation(ctx, *donation); err != nil {
		s.LogError(ctx, err, "Failed to persist donation reversal", "donation_id", donationID, "target", string(target))
		return nil, fmt.Errorf("failed to update donation: %w", err)
	}

	event := s.publishEvent(ctx, kind, donation)
	if _, err := s.statsSvc.ApplyDonationEvent(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to reverse category statistics",
			"donation_id", donationID, "category_id", donation.CategoryID)
	}

	s.LogInfo(ctx, "Donation reversed", "donation_id", donationID, "status", string(target))
	return donation, nil
}

// MarkReceiptSent records that a receipt went out for a donation.
func (s *donationService) MarkReceiptSent(ctx context.Context, donationID string, userID string) error {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		return fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	if donation.IsReceiptSent {
		return nil
	}
	donation.IsReceiptSent = true
	donation.LastUpdatedAt = time.Now().UTC()
	donation.LastUpdatedBy = userID

	if err := s.donationRepo.UpdateDonation(ctx, *donation); err != nil {
		return fmt.Errorf("failed to mark receipt sent: %w", err)
	}
	return nil
}

// validateDonation enforces the ledger invariants with typed errors so
// callers can tell which invariant failed.
func (s *donationService) validateDonation(d *domain.Donation, now time.Time) error {
	if d.Amount.LessThanOrEqual(decimal.Zero) {
		return apperrors.NewValidationError("amount", "amount must be positive")
	}
	if !currency.HasValidPrecision(d.Amount) {
		return apperrors.NewValidationError("amount", "amount must have at most two fractional digits")
	}
	if d.Amount.GreaterThan(s.amountCeiling) {
		return apperrors.NewValidationError("amount", fmt.Sprintf("amount exceeds the configured ceiling of %s", s.amountCeiling.String()))
	}
	if d.DonationDate.After(now) {
		return apperrors.NewValidationError("date", "donation date must not be in the future")
	}
	if !domain.ValidMethod(d.Method) {
		return apperrors.NewValidationError("method", fmt.Sprintf("unknown donation method %q", d.Method))
	}
	if err := s.complianceSvc.ValidateDonationCompliance(*d); err != nil {
		return err
	}
	if d.Compliance.IsAnonymous {
		if d.DonorID != nil || d.DonorName != nil {
			return apperrors.NewValidationError("identity", "anonymous donations must not carry donor identity")
		}
	} else if d.DonorID == nil {
		return apperrors.NewValidationError("identity", "non-anonymous donations require a donor")
	}
	return nil
}

// publishEvent emits a ledger change event with a monotonically increasing
// sequence and returns it for in-process consumers.
func (s *donationService) publishEvent(ctx context.Context, kind domain.LedgerEventKind, d *domain.Donation) domain.LedgerEvent {
	event := domain.LedgerEvent{
		Sequence:   s.eventSeq.Add(1),
		Kind:       kind,
		DonationID: d.DonationID,
		CategoryID: d.CategoryID,
		DonorID:    d.DonorID,
		OccurredAt: time.Now().UTC(),
	}
	if s.eventSink != nil {
		if err := s.eventSink.PublishEvent(ctx, event); err != nil {
			s.LogWarn(ctx, "Failed to publish ledger event", "kind", string(kind), "donation_id", d.DonationID, "error", err.Error())
		}
	}
	return event
}
