package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/faithledger/donation_engine/internal/apperrors"
	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/faithledger/donation_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// callerIdentity pulls the resolved role and subject from the request
// context. It writes the 401 response itself when the auth middleware did
// not run.
func callerIdentity(c *gin.Context) (domain.AccessRole, string, bool) {
	role, ok := middleware.GetAccessRoleFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	subjectID, _ := middleware.GetSubjectIDFromCtx(c.Request.Context())
	return role, subjectID, true
}

// requireFullAccess guards write and unsanitized-read endpoints. It writes
// the error response itself when the caller's role is insufficient.
func requireFullAccess(c *gin.Context) bool {
	role, _, ok := callerIdentity(c)
	if !ok {
		return false
	}
	if role != domain.RoleFullAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return false
	}
	return true
}

// respondServiceError maps service-layer errors onto HTTP responses. Typed
// sentinel unwrapping keeps this free of string matching.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error, internalMsg string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("State conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Access denied", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Error(internalMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalMsg})
	}
}
