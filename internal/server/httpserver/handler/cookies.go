package handler

import (
	"net/http"
	"time"
)

// Cookie names. SSID carries the signed session token; UUID carries
// the plaintext user id used as the cache shard key. The user id is
// also bound into the SSID digest, so a swapped UUID cookie fails
// signature verification rather than confusing sessions.
const (
	SessionCookieName = "SSID"
	UserCookieName    = "UUID"
)

// CookiePolicy decides the attributes of issued cookies.
type CookiePolicy struct {
	// Secure marks cookies Secure. Disable only for plain-HTTP
	// development setups.
	Secure bool
}

// Issue sets the session cookie pair on the response.
func (p CookiePolicy) Issue(w http.ResponseWriter, userID, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UserCookieName,
		Value:    userID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear reissues both cookies with Max-Age=0 so the client drops them.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, UserCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   p.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// ReadCredentials extracts the cookie pair from a request. Missing
// cookies come back as empty strings; the auth gate distinguishes
// absent from malformed.
func ReadCredentials(r *http.Request) (userID, token string) {
	if c, err := r.Cookie(UserCookieName); err == nil {
		userID = c.Value
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		token = c.Value
	}
	return userID, token
}
