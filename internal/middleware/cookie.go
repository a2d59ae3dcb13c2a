package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"drravalement/site/internal/authctx"
)

const SessionCookieName = "drrav_admin"

// NewCookieStore returns the signed cookie store holding the admin bearer token.
func NewCookieStore(secret string, secure bool, maxAge int) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// RequestToken returns the bearer token of the request, from the
// Authorization header or else the admin cookie.
func RequestToken(c *gin.Context, store sessions.Store) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if store == nil {
		return ""
	}
	sess, err := store.Get(c.Request, SessionCookieName)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[authctx.TokenKey].(string)
	return token
}

func SaveCookieToken(c *gin.Context, store sessions.Store, token string) error {
	sess, _ := store.Get(c.Request, SessionCookieName)
	sess.Values[authctx.TokenKey] = token
	return sess.Save(c.Request, c.Writer)
}

func ClearCookieToken(c *gin.Context, store sessions.Store) error {
	sess, _ := store.Get(c.Request, SessionCookieName)
	delete(sess.Values, authctx.TokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request, c.Writer)
}
