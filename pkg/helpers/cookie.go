package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const AccessTokenCookie = "access_token"

// Manager writes the HttpOnly access-token cookie issued at login.
type Manager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure, SameSite: http.SameSiteLaxMode}
}

// SetAccess stores token until exp.
func (m *Manager) SetAccess(c *gin.Context, token string, exp time.Time) {
	http.SetCookie(c.Writer, m.cookie(token, exp, maxAgeFrom(exp)))
}

// Clear expires the cookie on the client.
func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.cookie("", time.Unix(0, 0), -1))
}

func (m *Manager) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		Expires:  exp.UTC(),
		MaxAge:   maxAge,
		Secure:   m.Secure,
		HttpOnly: true,
		SameSite: m.SameSite,
	}
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
