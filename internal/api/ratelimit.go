package api

import (
	"net/http"
	"strings"

	"github.com/pagemarkapp/pagemark-server/internal/http/response"
)

// rateLimitSyncMutations rate limits the write side of the sync surface by
// client IP. Pulls stay unthrottled; a push storm or a maintenance loop is
// what actually hurts the database.
func (s *Server) rateLimitSyncMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isSyncMutation(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := getClientIP(r)
		if !s.syncRateLimiter.Allow(key) {
			s.logger.Warn("rate limit exceeded",
				"ip", key,
				"method", r.Method,
				"path", r.URL.Path,
			)
			response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isSyncMutation reports whether the request mutates sync state: the push
// endpoint, the maintenance POSTs, and single-entity deletes.
func isSyncMutation(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return r.URL.Path == "/sync" || strings.HasPrefix(r.URL.Path, "/sync/")
	case http.MethodDelete:
		return strings.HasPrefix(r.URL.Path, "/sync/entity/")
	default:
		return false
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}

	// Check X-Real-IP.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}
