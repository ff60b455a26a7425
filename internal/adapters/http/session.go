package httpadapter

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "user_session"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// sessionFromRequest returns the session id carried by the request, or "".
func sessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id := strings.TrimSpace(cookie.Value)
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// ensureSession returns the request's session id, issuing a new cookie when
// the request has none.
func (rt *Router) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := sessionFromRequest(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   rt.cfg.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
