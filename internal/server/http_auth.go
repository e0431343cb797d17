package server

import (
	"net/http"
	"net/url"
	"strings"
)

// handleLogin handles GET /api/login by redirecting to the identity provider.
// The provider sends the browser back to return_to after authentication.
func (s *DealServer) handleLogin(opts HTTPOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := redirectTarget(opts.LoginURL, opts.PublicURL, r.URL.Query().Get("return_to"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "login URL is misconfigured")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// handleLogout handles GET /api/logout.
func (s *DealServer) handleLogout(opts HTTPOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := redirectTarget(opts.LogoutURL, opts.PublicURL, r.URL.Query().Get("return_to"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "logout URL is misconfigured")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// redirectTarget appends return_to to the provider URL. Only same-site paths
// are honoured; anything else falls back to the application root.
func redirectTarget(provider, publicURL, returnTo string) (string, error) {
	u, err := url.Parse(provider)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, "\\") {
		returnTo = "/"
	}
	back := strings.TrimRight(publicURL, "/") + returnTo

	q := u.Query()
	q.Set("return_to", back)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
