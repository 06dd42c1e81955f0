package services

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/dto"
)

// SanitizerSvc derives role-specific projections of ledger data and
// summaries. Role and subject are always explicit parameters; the sanitizer
// never reads ambient session state.
type SanitizerSvc interface {
	// SanitizeDonations returns the donation list projected for the role.
	// Disallowed fields are structurally absent from the projection, not
	// blanked. Self-access requests for a foreign subject fail closed with an
	// AccessError.
	SanitizeDonations(ctx context.Context, role domain.AccessRole, subjectID string, donations []domain.Donation) (*dto.SanitizedDonationList, error)

	// SanitizeSummary returns the summary projected for the role. Self-access
	// callers receive a personal summary view without organization-wide donor
	// ranges.
	SanitizeSummary(ctx context.Context, role domain.AccessRole, subjectID string, summary *domain.FinancialSummary) (*dto.SanitizedSummary, error)

	// ExportFields returns the configured closed field whitelist for a role's
	// exports. The whitelists are configuration data, externally auditable.
	ExportFields(role domain.AccessRole) ([]string, error)
}
