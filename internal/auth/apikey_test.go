package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protectedHandler(m *KeyManager) http.Handler {
	return m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	handler := protectedHandler(NewKeyManager([]string{"secret-1"}, false))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/send", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	handler := protectedHandler(NewKeyManager([]string{"secret-1"}, false))

	req := httptest.NewRequest(http.MethodPost, "/api/send", nil)
	req.Header.Set("X-API-Key", "wrong")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddlewareAcceptsAnyConfiguredKey(t *testing.T) {
	handler := protectedHandler(NewKeyManager([]string{"secret-1", "secret-2"}, false))

	for _, key := range []string{"secret-1", "secret-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/send", nil)
		req.Header.Set("X-API-Key", key)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("key %q: status = %d, want 200", key, rr.Code)
		}
	}
}

func TestMiddlewareSkippedInDevMode(t *testing.T) {
	handler := protectedHandler(NewKeyManager([]string{"secret-1"}, true))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/send", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("dev mode should skip auth, got %d", rr.Code)
	}
}

func TestMiddlewareDisabledWithoutKeys(t *testing.T) {
	handler := protectedHandler(NewKeyManager(nil, false))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/send", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("no configured keys should disable auth, got %d", rr.Code)
	}
}
