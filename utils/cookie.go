package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verselabs/verse/config"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "token"

// SetSessionCookie attaches the session token to the response. The cookie is
// HTTP-only, requires secure transport and allows cross-site delivery so the
// UI can be served from another origin. No MaxAge is set: the cookie is
// session-scoped in the client.
func SetSessionCookie(ctx *gin.Context, token string) {
	cfg := config.Get()
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// SessionToken extracts the session token from the request. A missing cookie
// is not an error; it only means the request is unauthenticated.
func SessionToken(ctx *gin.Context) (string, bool) {
	token, err := ctx.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// ClearSessionCookie removes the session cookie. Tokens the client already
// holds stay cryptographically valid; clearing only drops the cookie.
func ClearSessionCookie(ctx *gin.Context) {
	cfg := config.Get()
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   -1,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
