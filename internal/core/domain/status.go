package domain

import "time"

// Lifecycle window constants.
const (
	// MemCacheDuration is the leading window before expiry during which
	// a session is considered close to expiring.
	MemCacheDuration = 8 * time.Hour

	// MaxRefreshDuration is the trailing window after expiry during which
	// a session may still be silently replaced instead of rejected.
	MaxRefreshDuration = 7 * 24 * time.Hour
)

// SessionState is the lifecycle state of a session. It is recomputed
// from the expiry timestamp on every check; there is no stored state.
type SessionState int

const (
	// StateValid means the session serves normally, no side effect.
	StateValid SessionState = iota

	// StateExpiring means the session still serves normally but is a
	// candidate for pre-emptive refresh.
	StateExpiring

	// StateRefreshable means the session must not serve the request;
	// it is replaced by a fresh session and the client retries.
	StateRefreshable

	// StateInvalid means the session is rejected as expired.
	StateInvalid
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpiring:
		return "expiring"
	case StateRefreshable:
		return "refreshable"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Status maps a session's expiry to its lifecycle state at the given
// instant. With diff = expiresAt - now:
//
//	diff > 8h            valid
//	0 < diff <= 8h       expiring
//	-7d < diff <= 0      refreshable
//	diff <= -7d          invalid
func Status(expiresAt, now time.Time) SessionState {
	diff := expiresAt.Sub(now)
	switch {
	case diff > MemCacheDuration:
		return StateValid
	case diff > 0:
		return StateExpiring
	case diff > -MaxRefreshDuration:
		return StateRefreshable
	default:
		return StateInvalid
	}
}
