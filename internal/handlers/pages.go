package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/authz"
	"drravalement/site/internal/gate"
	"drravalement/site/internal/middleware"
	"drravalement/site/internal/models"
	"drravalement/site/internal/service"
	"drravalement/site/internal/session"
)

type adminPage struct {
	Name        string
	Path        string
	Label       string
	Requirement gate.Requirement
}

var adminPages = []adminPage{
	{"quotes", "/admin/quotes", "Devis", gate.RequirePermission(authz.QuotesRead)},
	{"bookings", "/admin/bookings", "Rendez-vous", gate.RequirePermission(authz.BookingsRead)},
	{"projects", "/admin/projects", "Réalisations", gate.RequirePermission(authz.ProjectsRead)},
	{"media", "/admin/media", "Médiathèque", gate.RequirePermission(authz.CMSRead)},
	{"analytics", "/admin/analytics", "Statistiques", gate.RequirePermission(authz.AnalyticsRead)},
	{"settings", "/admin/settings", "Paramètres", gate.RequirePermission(authz.ConfigRead)},
	{"users", "/admin/users", "Utilisateurs", gate.RequireRoles(models.UserRoleAdmin)},
}

type navItem struct {
	Path  string
	Label string
}

// navFor lists the pages the user would be let into.
func (h HandlerSet) navFor(user models.User) []navItem {
	g := gate.New(h.authorizer, gate.DefaultLoginPath)
	items := make([]navItem, 0, len(adminPages))
	for _, page := range adminPages {
		if g.Evaluate(session.StatusValid, &user, page.Requirement, page.Path).State == gate.StateAuthorized {
			items = append(items, navItem{Path: page.Path, Label: page.Label})
		}
	}
	return items
}

func (h HandlerSet) renderShell(c *gin.Context, name, title string) {
	user := currentUser(c)
	c.HTML(http.StatusOK, "page.html", gin.H{
		"Title": title,
		"Page":  name,
		"User":  user,
		"Nav":   h.navFor(user),
	})
}

func (h HandlerSet) Dashboard(c *gin.Context) {
	h.renderShell(c, "dashboard", "Tableau de bord")
}

func (h HandlerSet) AdminPage(page adminPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.renderShell(c, page.Name, page.Label)
	}
}

func (h HandlerSet) renderLogin(c *gin.Context, status int, email, next, message string) {
	c.HTML(status, "login.html", gin.H{
		"Action": gate.DefaultLoginPath,
		"Email":  email,
		"Next":   next,
		"Error":  message,
	})
}

func (h HandlerSet) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, "", gate.SafeNext(c.Query("next")), "")
}

// LoginForm authenticates the admin form, stores the token in the admin
// cookie and sends the user back to the page that asked for a login.
func (h HandlerSet) LoginForm(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	next := gate.SafeNext(c.PostForm("next"))

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     email,
		Password:  c.PostForm("password"),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	h.countLogin(err)
	if err != nil {
		apiErr := toAPIError(err)
		if apiErr == nil {
			h.log.Error().Err(err).Msg("login failed")
			h.renderLogin(c, http.StatusServiceUnavailable, email, next, "Service momentanément indisponible, veuillez réessayer.")
			return
		}
		h.renderLogin(c, apiErr.StatusCode, email, next, loginMessage(err))
		return
	}

	if err := middleware.SaveCookieToken(c, h.cookies, result.Token); err != nil {
		h.log.Error().Err(err).Msg("save session cookie failed")
		h.renderLogin(c, http.StatusInternalServerError, email, next, "Impossible d'ouvrir la session.")
		return
	}

	if next == "" || strings.HasPrefix(next, gate.DefaultLoginPath) {
		next = "/admin"
	}
	c.Redirect(http.StatusSeeOther, next)
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrUserInactive):
		return "Ce compte est désactivé."
	case errors.Is(err, service.ErrTooManyAttempts):
		return "Trop de tentatives, réessayez plus tard."
	}
	return "Email ou mot de passe incorrect."
}

func (h HandlerSet) LogoutPage(c *gin.Context) {
	token := middleware.RequestToken(c, h.cookies)
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.log.Warn().Err(err).Msg("revoke session on logout failed")
	}
	if err := middleware.ClearCookieToken(c, h.cookies); err != nil {
		h.log.Warn().Err(err).Msg("clear session cookie failed")
	}
	c.Redirect(http.StatusSeeOther, gate.DefaultLoginPath)
}
