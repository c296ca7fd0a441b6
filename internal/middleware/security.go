package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related HTTP headers to responses.
type SecurityHeaders struct {
	secure bool
	csp    string
}

// NewSecurityHeaders builds the header set. imageOrigins are extra origins
// allowed in img-src; the guide backend serves the visual care guide images.
func NewSecurityHeaders(secure bool, imageOrigins ...string) *SecurityHeaders {
	img := []string{"'self'", "data:"}
	for _, origin := range imageOrigins {
		if origin != "" {
			img = append(img, origin)
		}
	}
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"font-src 'self' data:",
		"img-src " + strings.Join(img, " "),
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
	return &SecurityHeaders{secure: secure, csp: csp}
}

func (s *SecurityHeaders) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Content-Security-Policy", s.csp)

		if s.secure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
