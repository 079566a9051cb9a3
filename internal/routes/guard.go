package routes

import "github.com/spec-kit/locker-client/internal/domain"

// Well-known navigation targets.
const (
	LoginPath          = "/login"
	DefaultLandingPath = "/"
)

// DecisionKind classifies a guard outcome.
type DecisionKind int

const (
	// Suspend means the session is still loading; no decision can be made
	// yet and the caller must hold rendering.
	Suspend DecisionKind = iota
	// Admit lets the navigation through.
	Admit
	// Redirect sends the caller to Target instead.
	Redirect
)

// Decision is the outcome of a guard check. RememberOrigin carries the
// originally requested path when the redirect is an authentication
// requirement, so a successful login can return the user there. Permission
// denials never remember an origin.
type Decision struct {
	Kind           DecisionKind
	Target         string
	RememberOrigin string
}

// Decide maps the current session and requested path to an admit/redirect
// decision. Pure function: no side effects, no I/O.
func Decide(session domain.Session, requestedPath string, allowedRoles []domain.Role) Decision {
	if session.Loading {
		return Decision{Kind: Suspend}
	}

	if !session.Authenticated() {
		return Decision{Kind: Redirect, Target: LoginPath, RememberOrigin: requestedPath}
	}

	if len(allowedRoles) > 0 {
		role, _ := session.CurrentRole()
		if !roleAllowed(role, allowedRoles) {
			return Decision{Kind: Redirect, Target: DefaultLandingPath}
		}
	}

	return Decision{Kind: Admit}
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
