package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextClaimsKey stores the parsed token claims.
	ContextClaimsKey = "claims"
)

// Identity resolves the viewer from a bearer token or the session cookie.
// Anonymous requests pass through untouched; invalid or revoked tokens are ignored.
func Identity() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := TokenFromRequest(ctx)
		if tokenString == "" {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Sugar.Debugf("ignoring invalid token: %v", err)
			ctx.Next()
			return
		}
		if utils.IsTokenBlacklisted(ctx.Request.Context(), claims.ID) {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous viewers to the login page, remembering where they came from.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := ctx.Get(ContextUserIDKey); ok {
			ctx.Next()
			return
		}
		loginURL := config.Get().LoginURL
		ctx.Redirect(http.StatusFound, loginURL+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
		ctx.Abort()
	}
}

// AdminRequired allows only accounts whose stored username is configured as an administrator.
// The account is loaded by the token's user ID rather than trusting the username claim.
func AdminRequired(users repositories.UserRepository) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, _ := ctx.Get(ContextUserIDKey)
		userID, ok := value.(uint)
		if !ok || userID == 0 {
			utils.Abort(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			return
		}
		user, err := users.GetByID(ctx.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				utils.Abort(ctx, http.StatusUnauthorized, 40110, "unauthorized")
				return
			}
			utils.Logger.Error("admin lookup failed", zap.Uint("user_id", userID), zap.Error(err))
			utils.Abort(ctx, http.StatusInternalServerError, 50011, "failed to load user")
			return
		}
		if !config.Get().IsAdmin(user.Username) {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin only")
			return
		}
		ctx.Next()
	}
}

// TokenFromRequest extracts the raw JWT from the Authorization header, falling back to the session cookie.
func TokenFromRequest(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(config.Get().CookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
