// Package edge implements the offline cache controller: an origin-fronting
// handler that applies a per-request caching policy so a usable page can be
// served even when the origin is unreachable.
package edge

import (
	"net/http"
	"path"
	"strings"
)

// Strategy is the per-request caching decision.
type Strategy int

const (
	// Bypass goes straight to the origin; the cache is never consulted or
	// written. Applies to non-GET requests and the admin/API surface.
	Bypass Strategy = iota

	// NetworkFirst tries the origin and snapshots the response; on transport
	// failure it falls back to the cached copy, then to the offline page.
	// Applies to navigations and document loads.
	NetworkFirst

	// CacheFirst serves a cached copy immediately and revalidates in the
	// background. Applies to static assets and any other GET.
	CacheFirst
)

func (s Strategy) String() string {
	switch s {
	case NetworkFirst:
		return "network-first"
	case CacheFirst:
		return "cache-first"
	default:
		return "bypass"
	}
}

// cacheableDestinations are the asset classes a cold CacheFirst fetch may
// populate the cache with. Everything else is served but not stored.
var cacheableDestinations = map[string]bool{
	"image":  true,
	"style":  true,
	"script": true,
	"font":   true,
}

var extensionDestinations = map[string]string{
	".png":   "image",
	".jpg":   "image",
	".jpeg":  "image",
	".gif":   "image",
	".webp":  "image",
	".svg":   "image",
	".ico":   "image",
	".css":   "style",
	".js":    "script",
	".mjs":   "script",
	".woff":  "font",
	".woff2": "font",
	".ttf":   "font",
	".otf":   "font",
}

// Decide classifies a request. Pure: it inspects only method, path and fetch
// metadata headers, in the order the rules are defined.
func Decide(r *http.Request, bypassPrefixes []string) Strategy {
	if r.Method != http.MethodGet {
		return Bypass
	}
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return Bypass
		}
	}
	if isNavigation(r) {
		return NetworkFirst
	}
	return CacheFirst
}

// isNavigation reports whether the request is a top-level navigation or
// document load. Fetch metadata headers are authoritative when present; the
// Accept header is the fallback for clients that do not send them.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	switch r.Header.Get("Sec-Fetch-Dest") {
	case "document", "iframe", "frame":
		return true
	case "":
		// fall through to Accept sniffing
	default:
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// destination resolves the request destination, preferring the Sec-Fetch-Dest
// header and falling back to the URL extension.
func destination(r *http.Request) string {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" && dest != "empty" {
		return dest
	}
	return extensionDestinations[strings.ToLower(path.Ext(r.URL.Path))]
}

// cacheableAsset reports whether a cold-miss response for this request may be
// written to the cache.
func cacheableAsset(r *http.Request) bool {
	return cacheableDestinations[destination(r)]
}
