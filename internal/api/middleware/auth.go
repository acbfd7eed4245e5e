package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mpetrie/taskboard-api/internal/api/shared"
	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/service/auth"
)

// authFailedMessage is the uniform body of every 401. Missing, invalid,
// expired and superseded tokens are indistinguishable to the caller so
// the response leaks nothing about which check failed.
const authFailedMessage = "Authentication failed"

// SessionTokens is the subset of the session cache the middleware needs:
// lookup of a user's currently valid token.
type SessionTokens interface {
	Get(ctx context.Context, userID uuid.UUID) (string, error)
}

// AuthMiddleware gates protected routes: it validates the bearer token
// cryptographically and then checks it against the session cache, so at
// most one session token per user is honored at a time and a session can
// be revoked server-side by deleting its cache entry.
type AuthMiddleware struct {
	jwtService auth.JWTService
	sessions   SessionTokens
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, sessions SessionTokens) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		sessions:   sessions,
	}
}

// Authenticate validates bearer tokens from the Authorization header and
// adds the user ID to the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailedMessage)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailedMessage)
			return
		}

		token := parts[1]

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			// Expired, malformed and bad-signature tokens all get the
			// same response as a missing header.
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailedMessage)
			return
		}

		// The token must also be the user's current session token.
		// A token superseded by a newer login, or revoked by deleting the
		// cache entry, fails here even though its signature is valid.
		cachedToken, err := m.sessions.Get(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, cache.ErrCacheMiss) {
				slog.Error("failed to look up session token",
					"error", err,
					"user_id", claims.UserID)
				shared.RespondWithErrorAndLog(w, r,
					http.StatusInternalServerError, "Authentication error", err)
				return
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailedMessage)
			return
		}
		if cachedToken != token {
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailedMessage)
			return
		}

		// Add user ID to context
		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}
