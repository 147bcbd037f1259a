package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Paths used for browser redirects.
const (
	LoginPath           = "/login"
	PendingApprovalPath = "/pending-approval"
)

var protectedPrefixes = []string{"/dashboard", "/feeds", "/schedules", "/workers", "/rules", "/admin", "/api"}

var publicPaths = []string{"/api/health"}

// IsProtected reports whether path requires a session.
func IsProtected(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return false
		}
	}
	return matchesAny(path, protectedPrefixes)
}

// IsAdminOnly reports whether path additionally requires the admin role.
func IsAdminOnly(path string) bool {
	return matchesAny(path, []string{"/admin", "/api/admin"})
}

// isAPI reports whether path answers with JSON rather than redirects.
func isAPI(path string) bool {
	return matchesAny(path, []string{"/api"})
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Gate authenticates requests against Supabase tokens and the profile store.
type Gate struct {
	verifier *Verifier
	profiles ProfileStore
	logger   *slog.Logger
}

// NewGate creates a gate.
func NewGate(verifier *Verifier, profiles ProfileStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{verifier: verifier, profiles: profiles, logger: logger}
}

// failure describes why a request was refused.
type failure struct {
	status   int
	message  string
	redirect string
}

// authenticate resolves the session of r. Inactive profiles are returned
// with a pending-approval failure so callers can choose to let them through.
func (g *Gate) authenticate(r *http.Request) (*Session, *failure) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil, &failure{http.StatusUnauthorized, "Authentication required", LoginPath}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.logger.Debug("rejected access token", "path", r.URL.Path, "error", err)
		return nil, &failure{http.StatusUnauthorized, "Invalid or expired session", LoginPath}
	}

	if g.profiles == nil {
		return nil, &failure{http.StatusInternalServerError, "Profile store not configured", ""}
	}
	profile, err := g.profiles.ProfileByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			s := &Session{UserID: claims.Subject, Email: claims.Email, Profile: models.Profile{ID: claims.Subject, Email: claims.Email}}
			return s, &failure{http.StatusForbidden, "Account pending approval", PendingApprovalPath}
		}
		g.logger.Error("profile lookup failed", "user_id", claims.Subject, "error", err)
		return nil, &failure{http.StatusInternalServerError, "Internal server error", ""}
	}

	s := NewSession(claims.Subject, claims.Email, *profile)
	if !profile.IsActive {
		return s, &failure{http.StatusForbidden, "Account pending approval", PendingApprovalPath}
	}
	return s, nil
}

// Protect gates every protected path: no session means 401 (or a redirect to
// the login page), an inactive profile means 403 pending approval, and admin
// paths need the admin role. Unprotected paths pass through untouched.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !IsProtected(path) {
			next.ServeHTTP(w, r)
			return
		}

		s, fail := g.authenticate(r)
		if fail != nil && !(allowsPending(path) && s != nil) {
			g.refuse(w, r, fail)
			return
		}
		if IsAdminOnly(path) && !s.IsAdmin() {
			g.refuse(w, r, &failure{http.StatusForbidden, "Admin role required", "/dashboard"})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// allowsPending lists the paths an approved-pending user may still call.
func allowsPending(path string) bool {
	return path == "/api/me"
}

// RequirePermission refuses sessions whose role is not granted p.
func RequirePermission(p Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required", "")
				return
			}
			if !s.Can(p) {
				writeError(w, http.StatusForbidden, "Forbidden", "missing permission "+string(p))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) refuse(w http.ResponseWriter, r *http.Request, f *failure) {
	if !isAPI(r.URL.Path) && f.redirect != "" && r.Method == http.MethodGet {
		target := f.redirect
		if f.redirect == LoginPath {
			target += "?redirect=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeError(w, f.status, f.message, "")
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
