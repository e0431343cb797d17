package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestValidator_RoundTrip(t *testing.T) {
	v := NewValidator(testSecret, "dealdesk-test")
	token, err := v.Sign(Principal{Subject: "u-1", Name: "Alice Martin", Roles: []string{"associate"}}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	p, err := v.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Subject != "u-1" || p.DisplayName() != "Alice Martin" || len(p.Roles) != 1 {
		t.Errorf("principal = %+v", p)
	}
}

func TestValidator_Rejects(t *testing.T) {
	v := NewValidator(testSecret, "dealdesk-test")

	expired, _ := v.Sign(Principal{Subject: "u-1"}, -time.Minute)
	other, _ := NewValidator("ffffffffffffffffffffffffffffffff", "dealdesk-test").Sign(Principal{Subject: "u-1"}, time.Hour)
	wrongIssuer, _ := NewValidator(testSecret, "elsewhere").Sign(Principal{Subject: "u-1"}, time.Hour)
	noSubject, _ := v.Sign(Principal{}, time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "dealdesk-test"},
	}).SignedString([]byte(testSecret))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"expired":      expired,
		"other secret": other,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		if _, err := v.Validate(token); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestNewValidator_EmptySecret(t *testing.T) {
	if NewValidator("", "") != nil {
		t.Fatal("expected nil validator for empty secret")
	}
	var v *Validator
	if _, err := v.Validate("x"); err == nil {
		t.Error("expected error from nil validator")
	}
}

func TestBearerToken(t *testing.T) {
	for _, tc := range []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
	} {
		got, ok := BearerToken(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func captureActor(t *testing.T, mw func(http.Handler) http.Handler, header string) (int, string) {
	t.Helper()
	var actor string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = Actor(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/dossiers", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, actor
}

func TestMiddleware(t *testing.T) {
	v := NewValidator(testSecret, "")
	jwtToken, err := v.Sign(Principal{Subject: "u-2", Name: "Bruno Keller"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	mw := Middleware(Options{StaticToken: "svc-secret", StaticActor: "sync-bot", Validator: v})

	for _, tc := range []struct {
		name      string
		header    string
		wantCode  int
		wantActor string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic xyz", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"static token", "Bearer svc-secret", http.StatusOK, "sync-bot"},
		{"jwt", "Bearer " + jwtToken, http.StatusOK, "Bruno Keller"},
	} {
		code, actor := captureActor(t, mw, tc.header)
		if code != tc.wantCode || actor != tc.wantActor {
			t.Errorf("%s: got (%d, %q), want (%d, %q)", tc.name, code, actor, tc.wantCode, tc.wantActor)
		}
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	code, actor := captureActor(t, Middleware(Options{}), "")
	if code != http.StatusOK || actor != "" {
		t.Errorf("got (%d, %q), want (200, \"\")", code, actor)
	}
}

func TestMiddleware_PublicPath(t *testing.T) {
	mw := Middleware(Options{StaticToken: "svc-secret", Public: []string{"/api/health"}})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("public path: got %d, want 204", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "req-42" || rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("reused id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if Actor(ctx) != "" || Subject(ctx) != "" {
		t.Error("expected anonymous context")
	}
	ctx = WithPrincipal(ctx, &Principal{Subject: "u-3"})
	if Actor(ctx) != "u-3" || Subject(ctx) != "u-3" {
		t.Errorf("Actor/Subject = %q/%q", Actor(ctx), Subject(ctx))
	}
}
