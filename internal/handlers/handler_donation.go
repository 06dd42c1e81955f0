package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/faithledger/donation_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// donationHandler handles HTTP requests related to the donation ledger.
type donationHandler struct {
	donationService  portssvc.DonationSvcFacade
	sanitizerService portssvc.SanitizerSvc
}

// newDonationHandler creates a new donationHandler.
func newDonationHandler(ds portssvc.DonationSvcFacade, ss portssvc.SanitizerSvc) *donationHandler {
	return &donationHandler{
		donationService:  ds,
		sanitizerService: ss,
	}
}

// registerDonationRoutes registers routes related to donations.
func registerDonationRoutes(rg *gin.RouterGroup, ds portssvc.DonationSvcFacade, ss portssvc.SanitizerSvc) {
	h := newDonationHandler(ds, ss)

	donations := rg.Group("/donations")
	{
		donations.POST("", h.createDonation)
		donations.GET("", h.listDonations)
		donations.GET("/:id", h.getDonation)
		donations.PUT("/:id", h.updateDonation)
		donations.POST("/:id/verify", h.verifyDonation)
		donations.POST("/:id/void", h.voidDonation)
		donations.POST("/:id/refund", h.refundDonation)
		donations.POST("/:id/receipt", h.markReceiptSent)
	}
}

// createDonation godoc
// @Summary Record a new donation
// @Description Validates and records a new pending donation
// @Tags donations
// @Accept  json
// @Produce  json
// @Param   donation body dto.CreateDonationRequest true "Donation details"
// @Success 201 {object} dto.DonationResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Failed to record donation"
// @Security BearerAuth
// @Router /donations [post]
func (h *donationHandler) createDonation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	var req dto.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateDonation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	donation, err := h.donationService.CreateDonation(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to record donation")
		return
	}

	logger.Info("Donation recorded", slog.String("donation_id", donation.DonationID))
	c.JSON(http.StatusCreated, dto.ToDonationResponse(donation))
}

// listDonations godoc
// @Summary List donations
// @Description Retrieves a filtered, paginated donation list projected for the caller's access role
// @Tags donations
// @Produce  json
// @Param   categoryID query string false "Filter by category"
// @Param   donorID query string false "Filter by donor"
// @Param   status query string false "Filter by status"
// @Param   periodStart query string false "Period start (RFC3339)"
// @Param   periodEnd query string false "Period end (RFC3339)"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.SanitizedDonationList
// @Failure 400 {object} map[string]string "Invalid filter parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /donations [get]
func (h *donationHandler) listDonations(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	role, subjectID, ok := callerIdentity(c)
	if !ok {
		return
	}

	params, err := parseListParams(c)
	if err != nil {
		logger.Warn("Invalid list parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Self-access callers only ever see their own records; force the filter
	// to the authenticated subject rather than trusting the query string.
	if role == domain.RoleSelfAccess {
		params.DonorID = &subjectID
	}

	donations, nextToken, err := h.donationService.ListDonations(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list donations")
		return
	}

	sanitized, err := h.sanitizerService.SanitizeDonations(c.Request.Context(), role, subjectID, donations)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list donations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": sanitized, "nextToken": nextToken})
}

// getDonation godoc
// @Summary Get a donation by ID
// @Description Retrieves full details of a single donation
// @Tags donations
// @Produce  json
// @Param   id path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Donation not found"
// @Security BearerAuth
// @Router /donations/{id} [get]
func (h *donationHandler) getDonation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	donationID := c.Param("id")

	donation, err := h.donationService.GetDonationByID(c.Request.Context(), donationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Donation not found"})
			return
		}
		respondServiceError(c, logger, err, "Failed to retrieve donation")
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// updateDonation godoc
// @Summary Update a pending donation
// @Description Updates a donation that has not yet been verified; the full record is revalidated
// @Tags donations
// @Accept  json
// @Produce  json
// @Param   id path string true "Donation ID"
// @Param   donation body dto.UpdateDonationRequest true "Fields to update"
// @Success 200 {object} dto.DonationResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Donation not found"
// @Failure 409 {object} map[string]string "Donation is not pending"
// @Security BearerAuth
// @Router /donations/{id} [put]
func (h *donationHandler) updateDonation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	donationID := c.Param("id")

	var req dto.UpdateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateDonation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	updaterUserID, _ := middleware.GetUserIDFromCtx(c.Request.Context())
	donation, err := h.donationService.UpdateDonation(c.Request.Context(), donationID, req, updaterUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to update donation")
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// verifyDonation godoc
// @Summary Verify a pending donation
// @Description Transitions a pending donation to verified and applies it to category statistics
// @Tags donations
// @Produce  json
// @Param   id path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 404 {object} map[string]string "Donation not found"
// @Failure 409 {object} map[string]string "Donation is not pending"
// @Security BearerAuth
// @Router /donations/{id}/verify [post]
func (h *donationHandler) verifyDonation(c *gin.Context) {
	h.transition(c, h.donationService.VerifyDonation, "verify")
}

// voidDonation godoc
// @Summary Void a verified donation
// @Description Reverses a verified donation's contribution to statistics, retaining the record for audit
// @Tags donations
// @Produce  json
// @Param   id path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 404 {object} map[string]string "Donation not found"
// @Failure 409 {object} map[string]string "Donation is not verified"
// @Security BearerAuth
// @Router /donations/{id}/void [post]
func (h *donationHandler) voidDonation(c *gin.Context) {
	h.transition(c, h.donationService.VoidDonation, "void")
}

// refundDonation godoc
// @Summary Refund a verified donation
// @Description Reverses a verified donation's contribution to statistics and marks it refunded
// @Tags donations
// @Produce  json
// @Param   id path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 404 {object} map[string]string "Donation not found"
// @Failure 409 {object} map[string]string "Donation is not verified"
// @Security BearerAuth
// @Router /donations/{id}/refund [post]
func (h *donationHandler) refundDonation(c *gin.Context) {
	h.transition(c, h.donationService.RefundDonation, "refund")
}

// transition runs one donation lifecycle transition with shared error handling.
func (h *donationHandler) transition(c *gin.Context, fn func(ctx context.Context, donationID, userID string) (*domain.Donation, error), name string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	donationID := c.Param("id")
	userID, _ := middleware.GetUserIDFromCtx(c.Request.Context())

	donation, err := fn(c.Request.Context(), donationID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to "+name+" donation")
		return
	}
	logger.Info("Donation transition applied",
		slog.String("donation_id", donationID), slog.String("transition", name))
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// markReceiptSent godoc
// @Summary Mark a donation receipt as sent
// @Tags donations
// @Produce  json
// @Param   id path string true "Donation ID"
// @Success 204 "Receipt marked"
// @Failure 404 {object} map[string]string "Donation not found"
// @Security BearerAuth
// @Router /donations/{id}/receipt [post]
func (h *donationHandler) markReceiptSent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	donationID := c.Param("id")
	userID, _ := middleware.GetUserIDFromCtx(c.Request.Context())

	if err := h.donationService.MarkReceiptSent(c.Request.Context(), donationID, userID); err != nil {
		respondServiceError(c, logger, err, "Failed to mark receipt sent")
		return
	}
	c.Status(http.StatusNoContent)
}

// parseListParams parses the list query string into service parameters.
func parseListParams(c *gin.Context) (dto.ListDonationsParams, error) {
	params := dto.ListDonationsParams{Limit: 20}

	if v := c.Query("categoryID"); v != "" {
		params.CategoryID = &v
	}
	if v := c.Query("donorID"); v != "" {
		params.DonorID = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.DonationStatus(v)
		params.Status = &status
	}
	if v := c.Query("periodStart"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, errors.New("periodStart must be RFC3339")
		}
		params.PeriodStart = &t
	}
	if v := c.Query("periodEnd"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, errors.New("periodEnd must be RFC3339")
		}
		params.PeriodEnd = &t
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return params, errors.New("limit must be a positive integer")
		}
		params.Limit = limit
	}
	if v := c.Query("nextToken"); v != "" {
		params.NextToken = &v
	}
	return params, nil
}
