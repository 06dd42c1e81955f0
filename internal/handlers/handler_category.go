package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/dto"
	"github.com/faithledger/donation_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// categoryHandler handles HTTP requests related to donation categories.
type categoryHandler struct {
	categoryService portssvc.CategorySvcFacade
}

// newCategoryHandler creates a new categoryHandler.
func newCategoryHandler(cs portssvc.CategorySvcFacade) *categoryHandler {
	return &categoryHandler{categoryService: cs}
}

// registerCategoryRoutes registers routes related to categories.
func registerCategoryRoutes(rg *gin.RouterGroup, cs portssvc.CategorySvcFacade) {
	h := newCategoryHandler(cs)

	categories := rg.Group("/categories")
	{
		categories.POST("", h.createCategory)
		categories.GET("", h.listCategories)
		categories.GET("/:id", h.getCategory)
		categories.PUT("/:id", h.updateCategory)
		categories.DELETE("/:id", h.deleteCategory)
		categories.POST("/:id/deactivate", h.deactivateCategory)
		categories.POST("/:id/recalculate", h.recalculateCategory)
	}
}

// createCategory godoc
// @Summary Create a new category
// @Description Creates a new reporting category with a validated line-item taxonomy
// @Tags categories
// @Accept  json
// @Produce  json
// @Param   category body dto.CreateCategoryRequest true "Category details"
// @Success 201 {object} dto.CategoryResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Name or display order already in use"
// @Security BearerAuth
// @Router /categories [post]
func (h *categoryHandler) createCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateCategory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create category")
		return
	}
	logger.Info("Category created", slog.String("category_id", category.CategoryID))
	c.JSON(http.StatusCreated, dto.ToCategoryResponse(category))
}

// listCategories godoc
// @Summary List categories
// @Description Retrieves categories with their running statistics, ordered by display order
// @Tags categories
// @Produce  json
// @Param   activeOnly query bool false "Return only active categories"
// @Success 200 {array} dto.CategoryResponse
// @Security BearerAuth
// @Router /categories [get]
func (h *categoryHandler) listCategories(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	activeOnly := c.Query("activeOnly") == "true"

	categories, err := h.categoryService.ListCategories(c.Request.Context(), activeOnly)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, dto.ToCategoryResponses(categories))
}

// getCategory godoc
// @Summary Get a category by ID
// @Tags categories
// @Produce  json
// @Param   id path string true "Category ID"
// @Success 200 {object} dto.CategoryResponse
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/{id} [get]
func (h *categoryHandler) getCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	categoryID := c.Param("id")

	category, err := h.categoryService.GetCategoryByID(c.Request.Context(), categoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		respondServiceError(c, logger, err, "Failed to retrieve category")
		return
	}
	c.JSON(http.StatusOK, dto.ToCategoryResponse(category))
}

// updateCategory godoc
// @Summary Update category metadata
// @Description Updates category metadata. Running statistics are never writable here.
// @Tags categories
// @Accept  json
// @Produce  json
// @Param   id path string true "Category ID"
// @Param   category body dto.UpdateCategoryRequest true "Fields to update"
// @Success 200 {object} dto.CategoryResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *categoryHandler) updateCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	categoryID := c.Param("id")

	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateCategory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	updaterUserID, _ := middleware.GetUserIDFromCtx(c.Request.Context())
	category, err := h.categoryService.UpdateCategory(c.Request.Context(), categoryID, req, updaterUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, dto.ToCategoryResponse(category))
}

// deleteCategory godoc
// @Summary Delete an unreferenced category
// @Description Permanently removes a category that no donation references. Referenced categories must be deactivated instead.
// @Tags categories
// @Produce  json
// @Param   id path string true "Category ID"
// @Success 204 "Category deleted"
// @Failure 404 {object} map[string]string "Category not found"
// @Failure 409 {object} map[string]string "Category is referenced by donations"
// @Security BearerAuth
// @Router /categories/{id} [delete]
func (h *categoryHandler) deleteCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	categoryID := c.Param("id")
	userID, _ := middleware.GetUserIDFromCtx(c.Request.Context())

	if err := h.categoryService.DeleteCategory(c.Request.Context(), categoryID, userID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete category")
		return
	}
	logger.Info("Category deleted", slog.String("category_id", categoryID))
	c.Status(http.StatusNoContent)
}

// deactivateCategory godoc
// @Summary Deactivate a category
// @Description Soft-disables a category. Categories referenced by donations are never deleted.
// @Tags categories
// @Produce  json
// @Param   id path string true "Category ID"
// @Success 204 "Category deactivated"
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/{id}/deactivate [post]
func (h *categoryHandler) deactivateCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	categoryID := c.Param("id")
	userID, _ := middleware.GetUserIDFromCtx(c.Request.Context())

	if err := h.categoryService.DeactivateCategory(c.Request.Context(), categoryID, userID); err != nil {
		respondServiceError(c, logger, err, "Failed to deactivate category")
		return
	}
	logger.Info("Category deactivated", slog.String("category_id", categoryID))
	c.Status(http.StatusNoContent)
}

// recalculateCategory godoc
// @Summary Recalculate category statistics
// @Description Recomputes running totals from the full verified donation set and reconciles them with the incremental totals
// @Tags categories
// @Produce  json
// @Param   id path string true "Category ID"
// @Success 200 {object} dto.CategoryStatisticsResponse
// @Failure 404 {object} map[string]string "Category not found"
// @Failure 409 {object} map[string]string "Stored totals drifted beyond tolerance"
// @Security BearerAuth
// @Router /categories/{id}/recalculate [post]
func (h *categoryHandler) recalculateCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !requireFullAccess(c) {
		return
	}
	categoryID := c.Param("id")

	stats, err := h.categoryService.Recalculate(c.Request.Context(), categoryID)
	if err != nil {
		var consistencyErr *apperrors.ConsistencyError
		if errors.As(err, &consistencyErr) && stats != nil {
			// The recalculated totals are authoritative; surface both the
			// alert and the corrected values so the operator can reconcile.
			logger.Warn("Category statistics drifted", slog.String("category_id", categoryID),
				slog.String("error", consistencyErr.Error()))
			c.JSON(http.StatusConflict, gin.H{
				"error":        consistencyErr.Error(),
				"recalculated": statsResponse(stats),
			})
			return
		}
		respondServiceError(c, logger, err, "Failed to recalculate category statistics")
		return
	}
	c.JSON(http.StatusOK, statsResponse(stats))
}

func statsResponse(stats *domain.CategoryStatistics) dto.CategoryStatisticsResponse {
	return dto.CategoryStatisticsResponse{
		TotalAmount:      stats.TotalAmount,
		DonationCount:    stats.DonationCount,
		AverageDonation:  stats.AverageDonation,
		CurrentYearTotal: stats.CurrentYearTotal,
		LastYearTotal:    stats.LastYearTotal,
		LastDonationDate: stats.LastDonationDate,
	}
}
