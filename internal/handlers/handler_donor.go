package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portssvc "github.com/faithledger/donation_engine/internal/core/ports/services"
	"github.com/faithledger/donation_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// donorHandler serves the cached per-donor view and the cache admin
// endpoints.
type donorHandler struct {
	cacheService portssvc.DonorCacheSvc

	// watchCtx outlives individual requests; watches run until shutdown.
	watchCtx context.Context
	watching sync.Map // donorID -> struct{}
}

// newDonorHandler creates a new donorHandler. watchCtx bounds the lifetime
// of the event watches started for requested donors.
func newDonorHandler(cs portssvc.DonorCacheSvc, watchCtx context.Context) *donorHandler {
	return &donorHandler{
		cacheService: cs,
		watchCtx:     watchCtx,
	}
}

// registerDonorRoutes registers the donor view and cache admin routes.
func registerDonorRoutes(rg *gin.RouterGroup, cs portssvc.DonorCacheSvc, watchCtx context.Context) {
	h := newDonorHandler(cs, watchCtx)

	donors := rg.Group("/donors")
	{
		donors.GET("/me/view", h.getOwnView)
		donors.GET("/:id/view", h.getDonorView)
	}

	cache := rg.Group("/cache")
	{
		cache.GET("/stats", h.getCacheStats)
		cache.POST("/invalidate/:id", h.invalidateDonor)
		cache.POST("/clear", h.clearCache)
	}
}

// ensureWatch starts the ledger event watch for a donor exactly once. The
// watch overwrites the cached entry on matching events regardless of TTL.
func (h *donorHandler) ensureWatch(logger *slog.Logger, donorID string) {
	if _, loaded := h.watching.LoadOrStore(donorID, struct{}{}); loaded {
		return
	}
	go func() {
		if err := h.cacheService.Watch(h.watchCtx, donorID); err != nil && h.watchCtx.Err() == nil {
			logger.Error("Donor event watch stopped", slog.String("donor_id", donorID), slog.String("error", err.Error()))
			h.watching.Delete(donorID)
		}
	}()
}

// getOwnView godoc
// @Summary Get the caller's own donation view
// @Description Returns the caller's donation list and personal summary, served from the per-donor cache
// @Tags donors
// @Produce  json
// @Success 200 {object} dto.DonorView
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "No donor subject bound to the caller"
// @Security BearerAuth
// @Router /donors/me/view [get]
func (h *donorHandler) getOwnView(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	_, subjectID, ok := callerIdentity(c)
	if !ok {
		return
	}
	if subjectID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "No donor subject bound to the caller"})
		return
	}
	h.serveView(c, logger, subjectID)
}

// getDonorView godoc
// @Summary Get a donor's donation view
// @Description Returns a donor's donation list and personal summary. Restricted to full access.
// @Tags donors
// @Produce  json
// @Param   id path string true "Donor ID"
// @Success 200 {object} dto.DonorView
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /donors/{id}/view [get]
func (h *donorHandler) getDonorView(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	role, subjectID, ok := callerIdentity(c)
	if !ok {
		return
	}
	donorID := c.Param("id")
	// Self-access callers may hit this route too, but only for themselves.
	if role != domain.RoleFullAccess && donorID != subjectID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	h.serveView(c, logger, donorID)
}

func (h *donorHandler) serveView(c *gin.Context, logger *slog.Logger, donorID string) {
	h.ensureWatch(logger, donorID)

	view, err := h.cacheService.GetDonorView(c.Request.Context(), donorID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to load donor view")
		return
	}
	c.JSON(http.StatusOK, view)
}

// getCacheStats godoc
// @Summary Report donor cache counters
// @Tags cache
// @Produce  json
// @Success 200 {object} dto.CacheStats
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /cache/stats [get]
func (h *donorHandler) getCacheStats(c *gin.Context) {
	if !requireFullAccess(c) {
		return
	}
	c.JSON(http.StatusOK, h.cacheService.Stats())
}

// invalidateDonor godoc
// @Summary Drop the cache entry for one donor
// @Tags cache
// @Param   id path string true "Donor ID"
// @Success 204 "Entry dropped"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /cache/invalidate/{id} [post]
func (h *donorHandler) invalidateDonor(c *gin.Context) {
	if !requireFullAccess(c) {
		return
	}
	h.cacheService.Invalidate(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// clearCache godoc
// @Summary Drop every donor cache entry
// @Description Used on logout and subject switch so no data leaks across subjects
// @Tags cache
// @Success 204 "Cache cleared"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /cache/clear [post]
func (h *donorHandler) clearCache(c *gin.Context) {
	if !requireFullAccess(c) {
		return
	}
	h.cacheService.Clear()
	c.Status(http.StatusNoContent)
}
