package devserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/telemetry"
)

// ExtractClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For header first (for proxied requests), then X-Real-IP, finally RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		before, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(before)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// PermissiveCORS allows cross-origin access from any origin on every
// response, then answers preflight requests.
func PermissiveCORS() func(http.Handler) http.Handler {
	preflight := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return func(next http.Handler) http.Handler {
		h := preflight.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			h.ServeHTTP(w, r)
		})
	}
}

// AllowedHosts rejects requests whose Host header is not local and does not
// match allowed. Entries starting with a dot match the domain and every
// subdomain. An empty list allows every host.
func AllowedHosts(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HostAllowed(r.Host, allowed) {
				telemetry.GetMetrics().RejectedHostsTotal.Add(r.Context(), 1)
				log.Warn().Str("host", r.Host).Str("client_ip", ExtractClientIP(r)).Msg("Rejected request for disallowed host")
				http.Error(w, "Invalid Host header", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func HostAllowed(hostport string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || net.ParseIP(host) != nil {
		return true
	}

	for _, entry := range allowed {
		entry = strings.ToLower(entry)
		if domain, ok := strings.CutPrefix(entry, "."); ok {
			if host == domain || strings.HasSuffix(host, entry) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}
