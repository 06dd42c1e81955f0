package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/faithledger/donation_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportHandler handles HTTP requests for financial summaries and
// compliance disclosure reports.
type reportHandler struct {
	aggregationService portssvc.AggregationSvc
	complianceService  portssvc.ComplianceSvc
	sanitizerService   portssvc.SanitizerSvc
	donationService    portssvc.DonationSvcFacade
}

// newReportHandler creates a new reportHandler.
func newReportHandler(as portssvc.AggregationSvc, cs portssvc.ComplianceSvc, ss portssvc.SanitizerSvc, ds portssvc.DonationSvcFacade) *reportHandler {
	return &reportHandler{
		aggregationService: as,
		complianceService:  cs,
		sanitizerService:   ss,
		donationService:    ds,
	}
}

// registerReportRoutes registers routes related to reports.
func registerReportRoutes(rg *gin.RouterGroup, as portssvc.AggregationSvc, cs portssvc.ComplianceSvc, ss portssvc.SanitizerSvc, ds portssvc.DonationSvcFacade) {
	h := newReportHandler(as, cs, ss, ds)

	reports := rg.Group("/reports")
	{
		reports.GET("/summary", h.getSummary)
		reports.GET("/quid-pro-quo", h.getQuidProQuoDisclosures)
		reports.GET("/restricted-funds", h.getRestrictedFundDisclosures)
		reports.GET("/export-fields", h.getExportFields)
	}
}

// parsePeriod reads the mandatory periodStart/periodEnd query parameters.
func parsePeriod(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("periodStart"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("periodStart is required and must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, c.Query("periodEnd"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("periodEnd is required and must be RFC3339")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("periodEnd must not precede periodStart")
	}
	return start, end, nil
}

// getSummary godoc
// @Summary Build a financial summary for a period
// @Description Computes totals, category/method/line-item breakdowns, donor ranges and growth for the period, projected for the caller's access role
// @Tags reports
// @Produce  json
// @Param   periodStart query string true "Period start (RFC3339)"
// @Param   periodEnd query string true "Period end (RFC3339)"
// @Param   withPrevious query bool false "Include growth against the preceding period of equal length"
// @Success 200 {object} dto.SanitizedSummary
// @Failure 400 {object} map[string]string "Invalid period parameters"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *reportHandler) getSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	role, subjectID, ok := callerIdentity(c)
	if !ok {
		return
	}

	start, end, err := parsePeriod(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	withPrevious := c.Query("withPrevious") == "true"

	var summary *domain.FinancialSummary
	if role == domain.RoleSelfAccess {
		// Self-access callers get a summary over their own records only.
		donations, err := h.collectPeriodDonations(c, start, end, &subjectID)
		if err != nil {
			respondServiceError(c, logger, err, "Failed to build summary")
			return
		}
		summary, err = h.aggregationService.ComputeSummary(c.Request.Context(), donations, start, end, nil)
		if err != nil {
			respondServiceError(c, logger, err, "Failed to build summary")
			return
		}
	} else {
		summary, err = h.aggregationService.BuildPeriodSummary(c.Request.Context(), start, end, withPrevious)
		if err != nil {
			respondServiceError(c, logger, err, "Failed to build summary")
			return
		}
	}

	sanitized, err := h.sanitizerService.SanitizeSummary(c.Request.Context(), role, subjectID, summary)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, sanitized)
}

// getQuidProQuoDisclosures godoc
// @Summary List quid pro quo disclosures for a period
// @Description Lists verified donations where the donor received goods or services in return, with deductible amounts
// @Tags reports
// @Produce  json
// @Param   periodStart query string true "Period start (RFC3339)"
// @Param   periodEnd query string true "Period end (RFC3339)"
// @Success 200 {array} domain.QuidProQuoDisclosure
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /reports/quid-pro-quo [get]
func (h *reportHandler) getQuidProQuoDisclosures(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	start, end, err := parsePeriod(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	donations, err := h.collectPeriodDonations(c, start, end, nil)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to build disclosures")
		return
	}
	c.JSON(http.StatusOK, h.complianceService.QuidProQuoDisclosures(donations))
}

// getRestrictedFundDisclosures godoc
// @Summary List restricted fund disclosures for a period
// @Description Groups temporarily and permanently restricted verified donations by category
// @Tags reports
// @Produce  json
// @Param   periodStart query string true "Period start (RFC3339)"
// @Param   periodEnd query string true "Period end (RFC3339)"
// @Success 200 {array} domain.RestrictedFundDisclosure
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /reports/restricted-funds [get]
func (h *reportHandler) getRestrictedFundDisclosures(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	start, end, err := parsePeriod(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	donations, err := h.collectPeriodDonations(c, start, end, nil)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to build disclosures")
		return
	}

	disclosures, err := h.complianceService.RestrictedFundDisclosures(c.Request.Context(), donations)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to build disclosures")
		return
	}
	c.JSON(http.StatusOK, disclosures)
}

// getExportFields godoc
// @Summary Get the export field whitelist for the caller's role
// @Tags reports
// @Produce  json
// @Success 200 {object} map[string][]string
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /reports/export-fields [get]
func (h *reportHandler) getExportFields(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	role, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	fields, err := h.sanitizerService.ExportFields(role)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to resolve export fields")
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role, "fields": fields})
}

// collectPeriodDonations pages through all verified donations in the period.
func (h *reportHandler) collectPeriodDonations(c *gin.Context, start, end time.Time, donorID *string) ([]domain.Donation, error) {
	status := domain.DonationVerified
	params := dto.ListDonationsParams{
		Status:      &status,
		PeriodStart: &start,
		PeriodEnd:   &end,
		DonorID:     donorID,
		Limit:       500,
	}

	var all []domain.Donation
	for {
		page, nextToken, err := h.donationService.ListDonations(c.Request.Context(), params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if nextToken == nil {
			return all, nil
		}
		params.NextToken = nextToken
	}
}
