package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/agencysite/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request carries a valid, unrevoked admin JWT.
func AuthRequired(issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, "Authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, "Invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, "Empty bearer token")
			ctx.Abort()
			return
		}

		if blacklist != nil && blacklist.IsRevoked(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, "Token revoked")
			ctx.Abort()
			return
		}

		claims, err := issuer.Parse(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "Invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// OptionalAuth parses a bearer token when present and never rejects the request.
// Public endpoints use it to widen results for signed-in admins.
func OptionalAuth(issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token := strings.TrimSpace(parts[1])
			if token != "" && (blacklist == nil || !blacklist.IsRevoked(token)) {
				if claims, err := issuer.Parse(token); err == nil {
					ctx.Set(ContextUserIDKey, claims.UserID)
					ctx.Set(ContextUsernameKey, claims.Username)
					ctx.Set(ContextClaimsKey, claims)
				}
			}
		}
		ctx.Next()
	}
}

// IsAuthenticated reports whether an earlier middleware accepted a token.
func IsAuthenticated(ctx *gin.Context) bool {
	_, ok := ctx.Get(ContextClaimsKey)
	return ok
}
