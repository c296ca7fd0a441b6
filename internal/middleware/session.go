package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/plantcare/internal/handlers"
)

const defaultSessionCookie = "plant_session"

// SessionMiddleware gives every visitor an anonymous session id. There are no
// accounts; the id only keys the guide state kept on the server.
type SessionMiddleware struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewSessionMiddleware(cookieName string, ttl time.Duration, secure bool) *SessionMiddleware {
	if cookieName == "" {
		cookieName = defaultSessionCookie
	}
	return &SessionMiddleware{cookieName: cookieName, ttl: ttl, secure: secure}
}

// Apply reads the session cookie, issuing a fresh one when it is missing or
// malformed, and stores the id in the request context. The cookie is
// refreshed on every request so an active session does not expire.
func (m *SessionMiddleware) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(m.ttl.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := handlers.SetSessionIDInContext(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
