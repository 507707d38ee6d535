package middleware

import (
	"net/http"
	"strings"

	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	pkgauth "github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

const (
	guestSessionHeader = "X-Guest-Session"
	maxSessionIDLen    = 128
)

// Identity resolves the caller of every request. A valid bearer token wins;
// otherwise the guest session header is honored so anonymous shoppers can own
// a cart. Requests with neither proceed with a zero identity and are rejected
// by the handlers that need an actor.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				claims, err := pkgauth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				userID := claims.UserID
				ident := pkgauth.Identity{UserID: &userID, Role: claims.Role}
				ctx := WithIdentity(r.Context(), ident)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID.String())
					ctx = logg.WithActorRole(ctx, claims.Role.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if session := strings.TrimSpace(r.Header.Get(guestSessionHeader)); session != "" {
				if len(session) > maxSessionIDLen {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest session id too long"))
					return
				}
				ident := pkgauth.Identity{SessionID: &session, Role: enums.ActorRoleGuest}
				ctx := WithIdentity(r.Context(), ident)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, session)
					ctx = logg.WithActorRole(ctx, enums.ActorRoleGuest.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates the admin surface.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFromContext(r.Context()).IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
