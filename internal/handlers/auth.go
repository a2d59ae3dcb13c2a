package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/api"
	"drravalement/site/internal/apperr"
	"drravalement/site/internal/middleware"
	"drravalement/site/internal/service"
	"drravalement/site/internal/session"
)

func (h HandlerSet) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("email and password are required"))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.countLogin(err)
		if apiErr := toAPIError(err); apiErr != nil {
			apperr.Respond(c, apiErr)
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		apperr.Respond(c, apperr.ErrTransientBackend)
		return
	}
	h.countLogin(nil)

	c.JSON(http.StatusOK, api.LoginResponse{
		Token:   result.Token,
		User:    api.FromUser(result.User),
		Session: api.FromSession(result.Session),
	})
}

func (h HandlerSet) countLogin(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if apiErr := toAPIError(err); apiErr != nil {
			outcome = apiErr.Code
		}
	}
	h.metrics.Logins.WithLabelValues(outcome).Inc()
}

// Logout revokes the presented token. Unknown tokens are accepted.
func (h HandlerSet) Logout(c *gin.Context) {
	token := middleware.RequestToken(c, h.cookies)
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		apperr.Respond(c, apperr.ErrTransientBackend)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session validates the presented token and returns its user and session.
func (h HandlerSet) Session(c *gin.Context) {
	res := h.resolver.Validate(c.Request.Context(), middleware.RequestToken(c, h.cookies))
	switch res.Status {
	case session.StatusValid:
		c.JSON(http.StatusOK, api.SessionResponse{
			User:    api.FromUser(*res.User),
			Session: api.FromSession(*res.Session),
		})
	case session.StatusTransientError:
		apperr.Respond(c, apperr.ErrTransientBackend)
	default:
		apperr.Respond(c, apperr.ErrUnauthenticated)
	}
}

func (h HandlerSet) Me(c *gin.Context) {
	user := currentUser(c)
	resp := api.FromUser(user)
	for _, perm := range h.authorizer.Permissions(user.Role).Sorted() {
		resp.Permissions = append(resp.Permissions, string(perm))
	}
	c.JSON(http.StatusOK, gin.H{"user": resp})
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user := currentUser(c)
	current, _ := middleware.CurrentSession(c)

	rows, err := h.authService.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]api.Session, 0, len(rows))
	for _, row := range rows {
		item := api.FromSession(row)
		item.Current = row.ID == current.ID
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	user := currentUser(c)
	current, _ := middleware.CurrentSession(c)

	id := c.Param("id")
	if id == current.ID {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("use logout to end the current session"))
		return
	}
	if err := h.authService.RevokeSession(c.Request.Context(), user.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
