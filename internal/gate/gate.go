// Package gate decides, for one protected view, whether to render it, show a
// loading state, send the visitor to the login page, or deny access.
package gate

import (
	"net/url"
	"slices"
	"strings"

	"drravalement/site/internal/authz"
	"drravalement/site/internal/models"
	"drravalement/site/internal/session"
)

type State int

const (
	StateLoading State = iota
	StateAuthorized
	StateNoSession
	StateForbidden
	// StateUnavailable keeps the current view and reports a backend outage.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthorized:
		return "authorized"
	case StateNoSession:
		return "no_session"
	case StateForbidden:
		return "forbidden"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Requirement is what a protected view asks of the current user. The zero
// value only requires a valid session.
type Requirement struct {
	Roles      []models.UserRole
	Permission authz.Permission
}

func RequireRoles(roles ...models.UserRole) Requirement {
	return Requirement{Roles: roles}
}

func RequirePermission(perm authz.Permission) Requirement {
	return Requirement{Permission: perm}
}

func (r Requirement) Equal(other Requirement) bool {
	return r.Permission == other.Permission && slices.Equal(r.Roles, other.Roles)
}

func (r Requirement) String() string {
	var parts []string
	if len(r.Roles) > 0 {
		roles := make([]string, len(r.Roles))
		for i, role := range r.Roles {
			roles[i] = string(role)
		}
		parts = append(parts, "role:"+strings.Join(roles, "|"))
	}
	if r.Permission != "" {
		parts = append(parts, "perm:"+string(r.Permission))
	}
	if len(parts) == 0 {
		return "session"
	}
	return strings.Join(parts, ",")
}

type Decision struct {
	State State
	// RedirectTo is set for StateNoSession only.
	RedirectTo string
}

const DefaultLoginPath = "/admin/login"

type Gate struct {
	authorizer authz.Authorizer
	loginPath  string
}

func New(authorizer authz.Authorizer, loginPath string) Gate {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return Gate{authorizer: authorizer, loginPath: loginPath}
}

// Evaluate maps a resolver status and the current user to a decision for
// the view at requested. It is total and never panics.
func (g Gate) Evaluate(status session.Status, user *models.User, req Requirement, requested string) Decision {
	switch status {
	case session.StatusPending:
		return Decision{State: StateLoading}
	case session.StatusTransientError:
		return Decision{State: StateUnavailable}
	case session.StatusValid:
		if user == nil {
			return g.noSession(requested)
		}
	default:
		return g.noSession(requested)
	}

	if len(req.Roles) > 0 && !g.authorizer.HasRole(user, req.Roles...) {
		return Decision{State: StateForbidden}
	}
	if req.Permission != "" && !g.authorizer.HasPermission(user, req.Permission) {
		return Decision{State: StateForbidden}
	}
	return Decision{State: StateAuthorized}
}

func (g Gate) noSession(requested string) Decision {
	return Decision{State: StateNoSession, RedirectTo: LoginRedirect(g.loginPath, requested)}
}

func (g Gate) LoginPath() string {
	return g.loginPath
}

// LoginRedirect builds the login location carrying the originally requested
// path so the login page can send the user back there.
func LoginRedirect(loginPath, requested string) string {
	next := SafeNext(requested)
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext accepts only same-site absolute paths; anything else yields "".
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}
