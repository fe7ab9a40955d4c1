package domain

// Phase is the derived lifecycle state of a Session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRestoring
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the client's identity, tokens and
// readiness flags. User is present exactly when AccessToken is non-empty.
type Session struct {
	User         *User
	Profile      *Profile
	AccessToken  string
	RefreshToken string
	Loading      bool
	Initialized  bool
	// Restoring is set while Restore reconciles the stored credentials.
	Restoring bool
	// Version increases with every published snapshot.
	Version uint64
}

func (s Session) Authenticated() bool {
	return s.User != nil
}

// Phase derives the lifecycle state. Other operations in flight before
// Restore leave the session uninitialized, not restoring.
func (s Session) Phase() Phase {
	switch {
	case !s.Initialized && s.Restoring:
		return PhaseRestoring
	case !s.Initialized:
		return PhaseUninitialized
	case s.User != nil:
		return PhaseAuthenticated
	default:
		return PhaseUnauthenticated
	}
}

// Clone deep-copies the records so callers can not mutate manager state.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	s.Profile = s.Profile.Clone()
	return s
}
