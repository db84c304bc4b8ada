// Package auth guards the gateway's API surface with static API keys.
// Keys arrive in the X-API-Key header; /health stays outside the guard.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

// KeyManager validates inbound API keys.
type KeyManager struct {
	keys    []string
	devMode bool
}

// NewKeyManager creates a key manager. In dev mode the check is skipped,
// matching how local development runs without credentials.
func NewKeyManager(keys []string, devMode bool) *KeyManager {
	return &KeyManager{keys: keys, devMode: devMode}
}

// Enabled reports whether any keys are configured.
func (m *KeyManager) Enabled() bool {
	return len(m.keys) > 0 && !m.devMode
}

// Authorized checks the presented key in constant time per candidate.
func (m *KeyManager) Authorized(presented string) bool {
	if presented == "" {
		return false
	}
	for _, key := range m.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid key.
func (m *KeyManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if !m.Authorized(r.Header.Get("X-API-Key")) {
			logger.Warn("request rejected: invalid api key", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
