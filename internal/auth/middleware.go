package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Options configures Middleware. With neither StaticToken nor Validator set,
// auth is disabled and requests pass through anonymously.
type Options struct {
	// StaticToken is a shared secret for service-to-service calls.
	StaticToken string
	// StaticActor names the principal of StaticToken callers.
	StaticActor string
	Validator   *Validator
	// Public paths skip authentication.
	Public []string
}

func (o Options) enabled() bool {
	return o.StaticToken != "" || o.Validator != nil
}

func (o Options) isPublic(path string) bool {
	for _, p := range o.Public {
		if path == p {
			return true
		}
	}
	return false
}

// Authenticate resolves a raw bearer token into a principal.
func (o Options) Authenticate(token string) (*Principal, bool) {
	if o.StaticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(o.StaticToken)) == 1 {
		actor := o.StaticActor
		if actor == "" {
			actor = "service"
		}
		return &Principal{Subject: actor}, true
	}
	if o.Validator != nil {
		if p, err := o.Validator.Validate(token); err == nil {
			return p, true
		}
	}
	return nil, false
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// Middleware authenticates requests and stores the principal on the context.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !opts.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			token, ok := BearerToken(header)
			if !ok {
				unauthorized(w, "invalid authorization scheme")
				return
			}
			p, ok := opts.Authenticate(token)
			if !ok {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="dealdesk"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
