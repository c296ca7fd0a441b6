package middleware

import (
	"net/http"
	"path"
	"strings"
)

// CacheControl sets Cache-Control per route family.
type CacheControl struct{}

func NewCacheControl() *CacheControl {
	return &CacheControl{}
}

// Apply must run before the handler writes; session state pages and
// endpoints change on every request and are never cached.
func (c *CacheControl) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		h := w.Header()

		switch {
		case strings.HasPrefix(p, "/static/"):
			h.Set("Cache-Control", staticCacheControl(p))

		case strings.HasPrefix(p, "/api/"), strings.HasPrefix(p, "/guide"):
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
			h.Set("Pragma", "no-cache")

		case p == "/" || p == "":
			// The page reflects the session phase.
			h.Set("Cache-Control", "no-store")

		default:
			h.Set("Cache-Control", "no-store")
		}

		next.ServeHTTP(w, r)
	})
}

// staticCacheControl: fingerprinted names and media are immutable; CSS and
// JS without a hash revalidate daily.
func staticCacheControl(p string) string {
	lower := strings.ToLower(p)
	if isImmutableAsset(lower) || isFingerprinted(lower) {
		return "public, max-age=31536000, immutable"
	}
	if strings.HasSuffix(lower, ".css") || strings.HasSuffix(lower, ".js") {
		return "public, max-age=86400, must-revalidate"
	}
	return "public, max-age=3600"
}

var immutableExtensions = []string{
	".woff", ".woff2", ".ttf", ".otf",
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".ico", ".svg",
}

func isImmutableAsset(p string) bool {
	for _, ext := range immutableExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// isFingerprinted matches names like styles.3f9a1c2b.css written by the
// asset manifest.
func isFingerprinted(p string) bool {
	base := path.Base(p)
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, r := range hash {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
