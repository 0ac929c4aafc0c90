package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func echoIdentity(t *testing.T, gotTenant, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant, ok := TenantID(r.Context()); ok {
			*gotTenant = tenant
		}
		if user, ok := UserID(r.Context()); ok {
			*gotUser = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareRequiresVerifiedIdentity(t *testing.T) {
	var tenant, user string
	h := Middleware(Config{Required: true})(echoIdentity(t, &tenant, &user))

	cases := []struct {
		name     string
		headers  map[string]string
		wantCode int
	}{
		{"no headers", nil, http.StatusUnauthorized},
		{"unverified", map[string]string{HeaderTenantID: "acme"}, http.StatusUnauthorized},
		{"verified without tenant", map[string]string{HeaderVerified: "true"}, http.StatusUnauthorized},
		{
			"verified with tenant",
			map[string]string{HeaderVerified: "true", HeaderTenantID: "acme", HeaderUserID: "u1"},
			http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/audit/run", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}

	if tenant != "acme" || user != "u1" {
		t.Errorf("context identity = (%q, %q), want (acme, u1)", tenant, user)
	}
}

func TestMiddlewareBypassPaths(t *testing.T) {
	var tenant, user string
	h := Middleware(Config{Required: true, BypassPaths: []string{"/health"}})(echoIdentity(t, &tenant, &user))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("bypass path rejected: %d", rec.Code)
	}
}

// An optional identity is bound when present but never enforced.
func TestMiddlewareOptionalIdentity(t *testing.T) {
	var tenant, user string
	h := Middleware(Config{})(echoIdentity(t, &tenant, &user))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/audit/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("optional mode rejected an anonymous request: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/audit/run", nil)
	req.Header.Set(HeaderTenantID, "acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if tenant != "acme" {
		t.Errorf("tenant = %q, want acme bound even when optional", tenant)
	}
}
