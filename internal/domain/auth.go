package domain

// Role differentiates end-user and administrator identities.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is derived deterministically from the access token payload. It is
// never persisted on its own; it is re-derived from the credential pair on
// every load. Role is immutable for the lifetime of a given access token.
type Identity struct {
	SubjectID string
	Role      Role
}

// Profile supplements Identity with server-confirmed attributes from /me.
type Profile struct {
	SubjectID   string
	DisplayName string
	Email       string
	Role        Role
}

// Session is the live composite of identity, profile, and a loading flag.
// Exactly one Session is live per process. Loading gates only the token
// decode step, not the asynchronous profile fetch.
type Session struct {
	Identity *Identity
	Profile  *Profile
	Loading  bool
}

// Authenticated reports whether an identity has been established.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// CurrentRole returns the session role, preferring the identity decoded from
// the token over the server-reported profile role.
func (s Session) CurrentRole() (Role, bool) {
	if s.Identity != nil {
		return s.Identity.Role, true
	}
	return "", false
}
