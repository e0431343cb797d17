package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// HTTPOptions configures the REST handler.
type HTTPOptions struct {
	Auth auth.Options
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
	// LoginURL and LogoutURL are the identity provider endpoints the
	// /api/login and /api/logout routes redirect to.
	LoginURL  string
	LogoutURL string
	// PublicURL is the externally visible base of this server, used to build
	// absolute return_to targets.
	PublicURL string
}

// publicPaths never require credentials.
var publicPaths = []string{"/api/health", "/api/login", "/api/logout"}

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *DealServer) NewHTTPHandler(opts HTTPOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dossiers", s.handleListDossiers)
	mux.HandleFunc("POST /api/dossiers", s.handleCreateDossier)
	mux.HandleFunc("GET /api/dossiers/{id}", s.handleGetDossier)
	mux.HandleFunc("PATCH /api/dossiers/{id}", s.handleUpdateDossier)
	mux.HandleFunc("PATCH /api/dossiers/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("DELETE /api/dossiers/{id}", s.handleDeleteDossier)
	mux.HandleFunc("GET /api/dossiers/{id}/roadshow", s.handleGetRoadshow)
	mux.HandleFunc("POST /api/dossiers/{id}/societes", s.handleLinkCompany)
	mux.HandleFunc("GET /api/societes", s.handleListCompanies)
	mux.HandleFunc("POST /api/societes", s.handleCreateCompany)
	mux.HandleFunc("GET /api/interactions", s.handleListInteractions)
	mux.HandleFunc("POST /api/interactions", s.handleCreateInteraction)
	mux.HandleFunc("GET /api/rappels", s.handleListReminders)
	mux.HandleFunc("POST /api/rappels", s.handleCreateReminder)
	mux.HandleFunc("POST /api/rappels/{id}/fait", s.handleCompleteReminder)
	mux.HandleFunc("GET /api/dashboard/stats", s.handleGetStats)
	mux.HandleFunc("GET /api/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /api/login", s.handleLogin(opts))
	mux.HandleFunc("GET /api/logout", s.handleLogout(opts))
	mux.HandleFunc("GET /api/health", s.handleHealth)

	authOpts := opts.Auth
	authOpts.Public = append(append([]string(nil), authOpts.Public...), publicPaths...)

	var h http.Handler = mux
	h = auth.Middleware(authOpts)(h)
	h = s.accessLog(h)
	h = corsMiddleware(opts.CORSOrigins)(h)
	return auth.RequestIDMiddleware(h)
}

// handleHealth handles GET /api/health.
func (s *DealServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware answers preflight requests and echoes allowed origins.
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && originAllowed(origin, allowed) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Last-Event-ID, "+auth.RequestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", "X-Total-Count, "+auth.RequestIDHeader)
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// statusRecorder captures the response code for the access log. It keeps
// Flush working so the SSE stream is not buffered.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *DealServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", auth.RequestID(r.Context()),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("http request", attrs...)
		} else {
			s.logger.Debug("http request", attrs...)
		}
	})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps a service error to its HTTP status.
func (s *DealServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	var ie inputError
	switch {
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve.Errors))
		for _, fe := range ve.Errors {
			if _, ok := fields[fe.Field]; !ok {
				fields[fe.Field] = fe.Message
			}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "fields": fields})
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, notFoundMessage(err))
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", auth.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// notFoundMessage trims the driver sentinel from errors built by errNotFound.
func notFoundMessage(err error) string {
	msg, _, ok := strings.Cut(err.Error(), ": "+sql.ErrNoRows.Error())
	if !ok || msg == "" {
		return "not found"
	}
	return msg
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
