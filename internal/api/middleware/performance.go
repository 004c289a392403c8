package middleware

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// minCompressSize is the smallest body worth gzipping
const minCompressSize = 1024

var gzipWriterPool = sync.Pool{
	New: func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	},
}

// ResponseOptimization sets Cache-Control on every response. GET responses
// are buffered so they can carry an ETag, answer a matching If-None-Match
// with 304, and be gzipped when large enough and the client accepts it.
// A handler-set ETag (an entity version) wins over the body hash.
func ResponseOptimization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControlFor(r.URL.Path))

		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedResponse{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(buf, r)
		body := buf.body.Bytes()

		if buf.status == http.StatusOK {
			etag := w.Header().Get("ETag")
			if etag == "" {
				sum := sha256.Sum256(body)
				etag = `"` + hex.EncodeToString(sum[:16]) + `"`
				w.Header().Set("ETag", etag)
			}
			if etagMatches(r.Header.Get("If-None-Match"), etag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		if len(body) >= minCompressSize && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			if compressed, ok := gzipBody(body); ok {
				body = compressed
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Add("Vary", "Accept-Encoding")
			}
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(buf.status)
		_, _ = w.Write(body)
	})
}

// cacheControlFor marks the static compatibility table as publicly
// cacheable and everything else as private
func cacheControlFor(path string) string {
	if path == "/api/compatibility" {
		return "public, max-age=86400"
	}
	return "private, no-cache, must-revalidate"
}

// etagMatches checks an If-None-Match header, which may list several tags
// or "*", against etag using weak comparison
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

func gzipBody(body []byte) ([]byte, bool) {
	var out bytes.Buffer
	gz := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(gz)
	gz.Reset(&out)
	if _, err := gz.Write(body); err != nil {
		return nil, false
	}
	if err := gz.Close(); err != nil {
		return nil, false
	}
	return out.Bytes(), true
}

// bufferedResponse holds the status and body until the handler returns
type bufferedResponse struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
