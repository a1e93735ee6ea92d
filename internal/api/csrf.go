package api

import (
	"net/http"
	"net/url"
)

const (
	// CSRFCookieName is the cookie the server stores its CSRF token in
	CSRFCookieName = "csrftoken"
	// CSRFHeader carries the token on mutating requests
	CSRFHeader = "X-CSRFToken"
	// SessionCookieName is the server's session cookie
	SessionCookieName = "sessionid"
)

// CookieValue returns the named cookie the jar would send to u, or ""
func CookieValue(jar http.CookieJar, u *url.URL, name string) string {
	if jar == nil || u == nil {
		return ""
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// CSRFToken returns the token for authenticated write requests
func (c *Client) CSRFToken() string {
	return CookieValue(c.jar, c.base, CSRFCookieName)
}

// SessionID returns the current session cookie value
func (c *Client) SessionID() string {
	return CookieValue(c.jar, c.base, SessionCookieName)
}

// SetCookies seeds the jar with a previously saved session, so a restart
// does not require logging in again. Empty values are skipped.
func (c *Client) SetCookies(sessionID, csrfToken string) {
	var cookies []*http.Cookie
	if sessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: SessionCookieName, Value: sessionID, Path: "/"})
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: CSRFCookieName, Value: csrfToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(c.base, cookies)
	}
}
