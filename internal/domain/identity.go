package domain

import "strings"

// Identity is the key a cart resolves against: an authenticated user, an
// anonymous session key, or both while a login is in flight.
type Identity struct {
	UserID     string
	SessionKey string
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.UserID) == "" && strings.TrimSpace(i.SessionKey) == ""
}

// Authenticated reports whether the identity carries a user. A user always
// wins over the session key when both are present.
func (i Identity) Authenticated() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// PreLogin carries the anonymous identifiers observed on the request that
// performed a login, before and after the session key was rotated.
type PreLogin struct {
	CartID            string
	CookieSessionKey  string
	CurrentSessionKey string
}

// SessionKeys returns the candidate anonymous keys in lookup priority order.
func (p PreLogin) SessionKeys() []string {
	var keys []string
	if p.CookieSessionKey != "" {
		keys = append(keys, p.CookieSessionKey)
	}
	if p.CurrentSessionKey != "" && p.CurrentSessionKey != p.CookieSessionKey {
		keys = append(keys, p.CurrentSessionKey)
	}
	return keys
}

func (p PreLogin) IsZero() bool {
	return p.CartID == "" && len(p.SessionKeys()) == 0
}
