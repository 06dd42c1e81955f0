package middleware

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// contextKey is a private type for context keys to prevent collisions.
type contextKey string

const (
	loggerCtxKey  = contextKey("logger")
	userIDKey     = contextKey("userID")
	accessRoleKey = contextKey("accessRole")
	subjectIDKey  = contextKey("subjectID")
)

// GetUserIDFromCtx retrieves the authenticated user ID from the context.
func GetUserIDFromCtx(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok
}

// GetAccessRoleFromCtx retrieves the resolved access role from the context.
// Role is resolved once per request by the auth middleware and then passed
// explicitly into services; this accessor exists for the transport layer only.
func GetAccessRoleFromCtx(ctx context.Context) (domain.AccessRole, bool) {
	v := ctx.Value(accessRoleKey)
	if v == nil {
		return "", false
	}
	role, ok := v.(domain.AccessRole)
	return role, ok
}

// GetSubjectIDFromCtx retrieves the opaque subject ID (donor identity for
// self-access callers) from the context.
func GetSubjectIDFromCtx(ctx context.Context) (string, bool) {
	v := ctx.Value(subjectIDKey)
	if v == nil {
		return "", false
	}
	subject, ok := v.(string)
	return subject, ok
}
