package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const keyIDContextKey contextKey = "api_key_id"

// KeyIDFromContext returns the short fingerprint of the API key that
// authenticated the request, or "" when auth is disabled.
func KeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyIDContextKey).(string)
	return id
}

// APIKeyAuth accepts "Authorization: Bearer <key>" or "X-API-Key: <key>".
// Keys are compared by SHA-256 digest in constant time. With no keys
// configured the middleware is a pass-through.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	digests := make([][sha256.Size]byte, 0, len(keys))
	for _, k := range keys {
		digests = append(digests, sha256.Sum256([]byte(k)))
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, ok := extractKey(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing or malformed API key")
				return
			}

			sum := sha256.Sum256([]byte(apiKey))
			matched := 0
			for i := range digests {
				matched |= subtle.ConstantTimeCompare(sum[:], digests[i][:])
			}
			if matched != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), keyIDContextKey, HashAPIKey(apiKey)[:8])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request) (string, bool) {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, true
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// HashAPIKey returns the hex SHA-256 digest of key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
