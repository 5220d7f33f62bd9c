package edge

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newReq(t *testing.T, method, target string, headers map[string]string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestDecide(t *testing.T) {
	bypass := []string{"/api/", "/admin/"}

	tests := []struct {
		name    string
		method  string
		target  string
		headers map[string]string
		want    Strategy
	}{
		{"post bypasses", http.MethodPost, "/contact", nil, Bypass},
		{"put bypasses", http.MethodPut, "/anything", nil, Bypass},
		{"delete bypasses", http.MethodDelete, "/x", nil, Bypass},
		{"api prefix bypasses", http.MethodGet, "/api/notifications", nil, Bypass},
		{"admin prefix bypasses", http.MethodGet, "/admin/dashboard", nil, Bypass},
		{"api bypasses even as navigation", http.MethodGet, "/api/page",
			map[string]string{"Sec-Fetch-Mode": "navigate"}, Bypass},
		{"navigate mode is network-first", http.MethodGet, "/publications",
			map[string]string{"Sec-Fetch-Mode": "navigate"}, NetworkFirst},
		{"document dest is network-first", http.MethodGet, "/team",
			map[string]string{"Sec-Fetch-Dest": "document"}, NetworkFirst},
		{"html accept fallback is network-first", http.MethodGet, "/news",
			map[string]string{"Accept": "text/html,application/xhtml+xml"}, NetworkFirst},
		{"stylesheet is cache-first", http.MethodGet, "/styles/main.css", nil, CacheFirst},
		{"script dest is cache-first", http.MethodGet, "/bundle",
			map[string]string{"Sec-Fetch-Dest": "script"}, CacheFirst},
		{"image with html accept still asset", http.MethodGet, "/logo.png",
			map[string]string{"Sec-Fetch-Dest": "image", "Accept": "text/html"}, CacheFirst},
		{"plain get defaults to cache-first", http.MethodGet, "/feed.xml", nil, CacheFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReq(t, tt.method, tt.target, tt.headers)
			assert.Equal(t, tt.want, Decide(r, bypass))
		})
	}
}

func TestCacheableAsset(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    bool
	}{
		{"png by extension", "/img/team.png", nil, true},
		{"css by extension", "/styles/site.css", nil, true},
		{"woff2 by extension", "/fonts/inter.woff2", nil, true},
		{"script by header", "/assets/chunk", map[string]string{"Sec-Fetch-Dest": "script"}, true},
		{"json not cacheable", "/data/pubs.json", nil, false},
		{"no extension not cacheable", "/graph", nil, false},
		{"audio dest not cacheable", "/talk.mp3", map[string]string{"Sec-Fetch-Dest": "audio"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReq(t, http.MethodGet, tt.target, tt.headers)
			assert.Equal(t, tt.want, cacheableAsset(r))
		})
	}
}
