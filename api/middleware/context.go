package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated user and role, or false when the
// request carried no usable identity.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.Role, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, "", false
	}
	role := RoleFromContext(ctx)
	if !role.IsValid() {
		return uuid.Nil, "", false
	}
	return id, role, true
}

// RequireActor is ActorFromContext for handlers, returning an UNAUTHORIZED
// error when no identity is present.
func RequireActor(ctx context.Context) (uuid.UUID, enums.Role, error) {
	id, role, ok := ActorFromContext(ctx)
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, role, nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the caller role into the context for downstream handlers.
func WithRole(ctx context.Context, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
