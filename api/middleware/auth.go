package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/siver-b2b-backend/api/responses"
	pkgAuth "github.com/angelmondragon/siver-b2b-backend/pkg/auth"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

// Auth verifies the bearer token and seeds the request context with the
// caller's id and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "auth misconfigured"))
				return
			}
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := identity.UserID.String()
			ctx := WithRole(WithUserID(r.Context(), userID), identity.Role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), string(identity.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
