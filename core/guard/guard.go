// Package guard gates protected views. It combines the session
// manager's validity check with the canonical access evaluation and
// resolves every request into a render-or-redirect decision.
package guard

import (
	"net/url"

	"parceldesk/core/rbac"
	"parceldesk/core/session"
)

type State int

const (
	// Loading is the zero value while the session manager has not been
	// consulted yet; Resolve never returns it.
	Loading State = iota
	Unauthenticated
	Unauthorized
	Authorized
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	case Authorized:
		return "authorized"
	default:
		return "loading"
	}
}

// Requirement is what a protected route declares.
type Requirement struct {
	rbac.Requirement
	RequireAuth   bool
	RequireTenant bool
}

// Decision tells the host what to render. RedirectTo is empty only in
// the Authorized state. Reason names the failed dimension for the
// unauthorized page.
type Decision struct {
	State      State
	RedirectTo string
	Reason     string
}

type Guard struct {
	sessions *session.Manager
}

func New(sessions *session.Manager) *Guard {
	return &Guard{sessions: sessions}
}

// Resolve evaluates a route requirement for the current session. The
// originally requested path rides along on the login redirect so the
// user lands back where they started. Permission changes mid-session
// take effect on the next Resolve.
func (g *Guard) Resolve(path string, req Requirement) Decision {
	if !req.RequireAuth && !req.RequireTenant && req.Requirement.Empty() {
		return Decision{State: Authorized}
	}
	if !g.sessions.IsTokenValid() {
		return Decision{
			State:      Unauthenticated,
			RedirectTo: session.PathLogin + "?redirect=" + url.QueryEscape(path),
			Reason:     "auth",
		}
	}
	sub := g.sessions.Subject()
	if req.RequireTenant && (sub == nil || sub.TenantID == "") {
		return Decision{State: Unauthorized, RedirectTo: session.PathSelectTenant, Reason: "tenant"}
	}
	if !rbac.CanAccess(sub, req.Requirement) {
		return Decision{
			State:      Unauthorized,
			RedirectTo: session.PathUnauthorized,
			Reason:     rbac.MissingDimension(sub, req.Requirement),
		}
	}
	return Decision{State: Authorized}
}
