package domain

// AuthStatus is the state of the client-side session machine.
type AuthStatus int

const (
	// AuthUnresolved is the state at application start, before any identity check.
	AuthUnresolved AuthStatus = iota
	// AuthResolving means an identity check is in flight.
	AuthResolving
	// AuthAuthenticated means the identity check returned a user.
	AuthAuthenticated
	// AuthAnonymous means the identity check failed or the user logged out.
	AuthAnonymous
)

func (s AuthStatus) String() string {
	switch s {
	case AuthUnresolved:
		return "unresolved"
	case AuthResolving:
		return "resolving"
	case AuthAuthenticated:
		return "authenticated"
	case AuthAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a settled outcome of resolution.
func (s AuthStatus) Terminal() bool {
	return s == AuthAuthenticated || s == AuthAnonymous
}

// Session is the client-held record of authentication state.
// User is non-nil iff Status is AuthAuthenticated. The bearer token is not
// part of it: it lives only in the port.TokenStore, which the gateway reads
// per request and clears on 401 and logout.
type Session struct {
	Status AuthStatus
	User   *User
}

// Authenticated builds a session for u.
func Authenticated(u *User) Session {
	return Session{Status: AuthAuthenticated, User: u}
}

// Anonymous builds a session without a user.
func Anonymous() Session {
	return Session{Status: AuthAnonymous}
}
