package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	return g.writer.Write(b)
}

// Flush pushes buffered compressed bytes to the client.
func (g *gzipResponseWriter) Flush() {
	_ = g.writer.Flush()
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	},
}

// Compress gzips responses when the client accepts it.
type Compress struct{}

func NewCompress() *Compress {
	return &Compress{}
}

func (c *Compress) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || !compressible(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gzipPool.Put(gz)
		}()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

// compressible rejects event streams, which must reach the browser event by
// event, and files that are already compressed.
func compressible(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return false
	}
	return !isPreCompressedPath(r.URL.Path)
}

var compressedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".ico",
	".zip", ".gz", ".br", ".zst",
	".woff", ".woff2", ".pptx",
}

func isPreCompressedPath(path string) bool {
	lowerPath := strings.ToLower(path)
	for _, ext := range compressedExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}
