package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"drravalement/site/internal/apperr"
	"drravalement/site/internal/authz"
	"drravalement/site/internal/gate"
	"drravalement/site/internal/metrics"
	"drravalement/site/internal/models"
	"drravalement/site/internal/session"
)

const (
	ctxSessionResult  = "session_result"
	ctxCurrentUser    = "current_user"
	ctxCurrentSession = "current_session"
	ctxSessionToken   = "session_token"
)

type SessionValidator interface {
	Validate(ctx context.Context, token string) session.Result
}

// Guard applies the route gate to gin routes. The session is resolved once
// per request and shared by stacked requirements.
type Guard struct {
	validator SessionValidator
	gate      gate.Gate
	cookies   sessions.Store
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewGuard(validator SessionValidator, g gate.Gate, cookies sessions.Store, m *metrics.Metrics, log zerolog.Logger) *Guard {
	return &Guard{
		validator: validator,
		gate:      g,
		cookies:   cookies,
		metrics:   m,
		log:       log,
	}
}

func (g *Guard) Session() gin.HandlerFunc {
	return g.Require(gate.Requirement{})
}

func (g *Guard) Permission(perm authz.Permission) gin.HandlerFunc {
	return g.Require(gate.RequirePermission(perm))
}

func (g *Guard) Roles(roles ...models.UserRole) gin.HandlerFunc {
	return g.Require(gate.RequireRoles(roles...))
}

func (g *Guard) Require(req gate.Requirement) gin.HandlerFunc {
	label := req.String()
	return func(c *gin.Context) {
		res := g.resolve(c)
		decision := g.gate.Evaluate(res.Status, res.User, req, c.Request.URL.RequestURI())
		if g.metrics != nil {
			g.metrics.GateDecisions.WithLabelValues(decision.State.String(), label).Inc()
		}

		switch decision.State {
		case gate.StateAuthorized:
			c.Next()
		case gate.StateNoSession:
			if isPageRequest(c) {
				c.Redirect(http.StatusFound, decision.RedirectTo)
				c.Abort()
				return
			}
			apperr.Abort(c, apperr.ErrUnauthenticated.WithLogin(decision.RedirectTo))
		case gate.StateForbidden:
			g.log.Info().
				Str("user_id", userID(res.User)).
				Str("requirement", label).
				Str("path", c.Request.URL.Path).
				Msg("access denied")
			g.deny(c, http.StatusForbidden, apperr.ErrForbidden, "Accès refusé", "Vous n'avez pas les droits nécessaires pour cette page.")
		default:
			g.deny(c, http.StatusServiceUnavailable, apperr.ErrTransientBackend, "Service indisponible", "Le service est momentanément indisponible, veuillez réessayer.")
		}
	}
}

func (g *Guard) resolve(c *gin.Context) session.Result {
	if v, ok := c.Get(ctxSessionResult); ok {
		if res, ok := v.(session.Result); ok {
			return res
		}
	}

	token := RequestToken(c, g.cookies)
	res := g.validator.Validate(c.Request.Context(), token)
	if g.metrics != nil {
		g.metrics.SessionValidations.WithLabelValues(res.Status.String(), res.Reason).Inc()
	}

	c.Set(ctxSessionResult, res)
	if res.Status == session.StatusValid && res.User != nil && res.Session != nil {
		c.Set(ctxCurrentUser, *res.User)
		c.Set(ctxCurrentSession, *res.Session)
		c.Set(ctxSessionToken, token)
	}
	return res
}

func (g *Guard) deny(c *gin.Context, status int, apiErr *apperr.APIError, title, message string) {
	if isPageRequest(c) {
		c.HTML(status, "error.html", gin.H{"Title": title, "Message": message})
		c.Abort()
		return
	}
	apperr.Abort(c, apiErr)
}

func isPageRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/admin")
}

func userID(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxCurrentUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(ctxCurrentSession)
	if !ok {
		return models.Session{}, false
	}
	sess, ok := v.(models.Session)
	return sess, ok
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ctxSessionToken)
}
