package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"mime"
	"net/http"

	"github.com/HammerMeetNail/plantcare/internal/handlers"
)

const (
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfTokenLen    = 32
	csrfMaxAge      = 12 * 60 * 60 // 12 hours
	maxCSRFFormBody = 64 * 1024
)

// CSRFMiddleware implements the double-submit cookie pattern. Scripts send
// the token in a header; plain HTML forms send it as a hidden field.
type CSRFMiddleware struct {
	secure bool
}

func NewCSRFMiddleware(secure bool) *CSRFMiddleware {
	return &CSRFMiddleware{secure: secure}
}

func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			token := m.ensureToken(w, r)
			next.ServeHTTP(w, r.WithContext(handlers.SetCSRFTokenInContext(r.Context(), token)))
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			forbidden(w, "CSRF token missing")
			return
		}

		submitted := r.Header.Get(csrfHeaderName)
		if submitted == "" && isFormPost(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxCSRFFormBody)
			submitted = r.PostFormValue(csrfFormField)
		}
		if submitted == "" {
			forbidden(w, "CSRF token header missing")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
			forbidden(w, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetCSRFTokenInContext(r.Context(), cookie.Value)))
	})
}

func isFormPost(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/x-www-form-urlencoded"
}

func forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

// ensureToken returns the request's token, issuing a new cookie if there is none.
func (m *CSRFMiddleware) ensureToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err == nil && cookie.Value != "" {
		w.Header().Set(csrfHeaderName, cookie.Value)
		return cookie.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfMaxAge,
		HttpOnly: false, // JS needs to read this
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})

	w.Header().Set(csrfHeaderName, token)
	return token
}

func generateCSRFToken() (string, error) {
	bytes := make([]byte, csrfTokenLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
