package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verselabs/verse/utils"
)

// ContextClaimsKey is the gin context key holding the verified session claims.
const ContextClaimsKey = "session_claims"

// AuthRequired gates protected endpoints on the session cookie. A missing
// cookie is 401; a present but invalid or tampered token is 403. On success
// the decoded claims are bound to the request context.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := utils.SessionToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusForbidden, "Forbidden")
			ctx.Abort()
			return
		}

		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// CurrentClaims returns the session claims bound by AuthRequired.
func CurrentClaims(ctx *gin.Context) (*utils.Claims, bool) {
	v, exists := ctx.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
