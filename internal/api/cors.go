package api

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions configures one CORS group. An AllowedOrigins entry of "*" admits any
// origin unless AllowCredentials is set, in which case origins must be listed explicitly.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

func CORSMiddleware(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(orDefault(opts.AllowedMethods, "GET", "POST", "OPTIONS"), ", ")
	headers := strings.Join(orDefault(opts.AllowedHeaders, "Content-Type", "Authorization"), ", ")
	maxAge := opts.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = 600
	}

	origins := make(map[string]bool, len(opts.AllowedOrigins))
	anyOrigin := false
	for _, o := range opts.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = !opts.AllowCredentials
			continue
		}
		origins[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || origins[origin]) {
				h.Set("Access-Control-Allow-Origin", origin)
				if opts.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			// Preflight: answered here, never routed.
			if r.Method == http.MethodOptions {
				if h.Get("Access-Control-Allow-Origin") != "" && r.Header.Get("Access-Control-Request-Method") != "" {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
