package services

import (
	"context"
	"fmt"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
)

// sanitizerService derives role-specific projections of donations and
// summaries. Role and subject arrive as explicit parameters on every call so
// the sanitizer stays a pure, testable boundary.
type sanitizerService struct {
	BaseService
	exportFields map[domain.AccessRole][]string
}

// NewSanitizerService creates a new sanitizer. exportFields is the
// configured role -> allowed-export-field whitelist; it is configuration
// data, auditable outside the code.
func NewSanitizerService(exportFields map[domain.AccessRole][]string) portssvc.SanitizerSvc {
	return &sanitizerService{exportFields: exportFields}
}

var _ portssvc.SanitizerSvc = (*sanitizerService)(nil)

// SanitizeDonations projects a donation list for a role. Disallowed fields
// are structurally absent from the projection so redaction and anonymity are
// indistinguishable to lower-privileged viewers. Self-access requests for a
// foreign subject fail closed.
func (s *sanitizerService) SanitizeDonations(ctx context.Context, role domain.AccessRole, subjectID string, donations []domain.Donation) (*dto.SanitizedDonationList, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewAccessError(string(role), subjectID, "unknown access role")
	}

	result := &dto.SanitizedDonationList{Role: role}

	switch role {
	case domain.RoleFullAccess:
		result.FullRecords = make([]dto.FullDonationView, 0, len(donations))
		for i := range donations {
			result.FullRecords = append(result.FullRecords, toFullView(&donations[i]))
		}

	case domain.RoleAggregateAccess:
		result.AggregateRecords = make([]dto.AggregateDonationView, 0, len(donations))
		for i := range donations {
			result.AggregateRecords = append(result.AggregateRecords, toAggregateView(&donations[i]))
		}

	case domain.RoleSelfAccess:
		if subjectID == "" {
			return nil, apperrors.NewAccessError(string(role), subjectID, "self access requires a subject")
		}
		result.SelfRecords = make([]dto.SelfDonationView, 0, len(donations))
		for i := range donations {
			d := &donations[i]
			// Anonymous records are never attributable, not even to the
			// subject who made them.
			if d.Compliance.IsAnonymous || d.DonorID == nil {
				continue
			}
			if *d.DonorID != subjectID {
				s.LogWarn(ctx, "Self-access subject boundary violation",
					"subject_id", subjectID, "donation_id", d.DonationID)
				return nil, apperrors.NewAccessError(string(role), subjectID,
					"donation set contains records belonging to another subject")
			}
			result.SelfRecords = append(result.SelfRecords, toSelfView(d))
		}
	}

	return result, nil
}

// SanitizeSummary projects a financial summary for a role. The summary
// itself carries no donor identities, so full and aggregate access receive
// it intact; self access receives a personal view without organization-wide
// donor ranges.
func (s *sanitizerService) SanitizeSummary(ctx context.Context, role domain.AccessRole, subjectID string, summary *domain.FinancialSummary) (*dto.SanitizedSummary, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewAccessError(string(role), subjectID, "unknown access role")
	}
	if summary == nil {
		return nil, fmt.Errorf("%w: nil summary", apperrors.ErrInternal)
	}

	result := &dto.SanitizedSummary{Role: role}

	switch role {
	case domain.RoleFullAccess:
		result.Full = summary
	case domain.RoleAggregateAccess:
		result.Aggregate = summary
	case domain.RoleSelfAccess:
		if subjectID == "" {
			return nil, apperrors.NewAccessError(string(role), subjectID, "self access requires a subject")
		}
		result.Self = &dto.SelfSummaryView{
			PeriodStart:     summary.PeriodStart,
			PeriodEnd:       summary.PeriodEnd,
			TotalDonations:  summary.TotalDonations,
			DonationCount:   summary.DonationCount,
			AverageDonation: summary.AverageDonation,
			ByCategory:      summary.ByCategory,
			ByMethod:        summary.ByMethod,
		}
	}

	return result, nil
}

// ExportFields returns the configured export whitelist for a role.
func (s *sanitizerService) ExportFields(role domain.AccessRole) ([]string, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewAccessError(string(role), "", "unknown access role")
	}
	fields, ok := s.exportFields[role]
	if !ok {
		// No whitelist configured means no exportable fields: fail closed.
		return []string{}, nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out, nil
}

func toFullView(d *domain.Donation) dto.FullDonationView {
	return dto.FullDonationView{
		DonationID:    d.DonationID,
		Amount:        d.Amount,
		DonationDate:  d.DonationDate,
		Method:        d.Method,
		CategoryID:    d.CategoryID,
		CategoryName:  d.CategoryName,
		Compliance:    d.Compliance,
		DonorID:       d.DonorID,
		DonorName:     d.DonorName,
		TaxYear:       d.TaxYear,
		Status:        d.Status,
		Notes:         d.Notes,
		IsReceiptSent: d.IsReceiptSent,
		VerifiedAt:    d.VerifiedAt,
	}
}

func toAggregateView(d *domain.Donation) dto.AggregateDonationView {
	return dto.AggregateDonationView{
		Amount:          d.Amount,
		DonationDate:    d.DonationDate,
		Method:          d.Method,
		CategoryID:      d.CategoryID,
		CategoryName:    d.CategoryName,
		LineItem:        d.Compliance.LineItem,
		RestrictionType: d.Compliance.RestrictionType,
		IsTaxDeductible: domain.LineItemDeductible(d.Compliance.LineItem),
		TaxYear:         d.TaxYear,
	}
}

func toSelfView(d *domain.Donation) dto.SelfDonationView {
	return dto.SelfDonationView{
		DonationID:    d.DonationID,
		Amount:        d.Amount,
		DonationDate:  d.DonationDate,
		Method:        d.Method,
		CategoryName:  d.CategoryName,
		TaxYear:       d.TaxYear,
		Status:        d.Status,
		IsReceiptSent: d.IsReceiptSent,
	}
}
