package services

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/dto"
)

// DonationReaderSvc defines read operations for the donation ledger.
type DonationReaderSvc interface {
	// GetDonationByID retrieves a specific donation by its ID.
	GetDonationByID(ctx context.Context, donationID string) (*domain.Donation, error)

	// ListDonations retrieves a filtered, paginated list of donations and a
	// token for the next page. Role projection happens downstream in the
	// sanitizer, so this returns the full records.
	ListDonations(ctx context.Context, params dto.ListDonationsParams) ([]domain.Donation, *string, error)
}

// DonationWriterSvc defines lifecycle operations for the donation ledger.
type DonationWriterSvc interface {
	// CreateDonation validates and persists a new pending donation.
	CreateDonation(ctx context.Context, req dto.CreateDonationRequest, creatorUserID string) (*domain.Donation, error)

	// UpdateDonation updates a pending donation after revalidation.
	UpdateDonation(ctx context.Context, donationID string, req dto.UpdateDonationRequest, updaterUserID string) (*domain.Donation, error)

	// VerifyDonation transitions a pending donation to verified and applies it
	// to category running statistics.
	VerifyDonation(ctx context.Context, donationID string, verifierUserID string) (*domain.Donation, error)

	// VoidDonation transitions a verified donation to void, reversing its
	// contribution to category statistics. The record is retained for audit.
	VoidDonation(ctx context.Context, donationID string, userID string) (*domain.Donation, error)

	// RefundDonation transitions a verified donation to refunded, reversing its
	// contribution to category statistics.
	RefundDonation(ctx context.Context, donationID string, userID string) (*domain.Donation, error)

	// MarkReceiptSent records that a receipt went out for a donation.
	MarkReceiptSent(ctx context.Context, donationID string, userID string) error
}

// DonationSvcFacade combines all donation ledger service interfaces.
type DonationSvcFacade interface {
	DonationReaderSvc
	DonationWriterSvc
}
