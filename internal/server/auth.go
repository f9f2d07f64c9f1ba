package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"deskhand/internal/domain"
	"deskhand/internal/engine"
	"deskhand/internal/repo"
)

const sessionCookieName = "deskhand_session"

type AuthConfig struct {
	// APIToken is the static bearer token for machine clients. Empty
	// disables API auth entirely.
	APIToken string
	// WebPassword is the shared login password for the browser surface.
	// Empty disables the session flow.
	WebPassword string
	// SessionSecret signs session cookies.
	SessionSecret string
	SessionTTL    time.Duration
}

func (c AuthConfig) enabled() bool {
	return c.APIToken != "" || c.WebPassword != ""
}

func (c AuthConfig) sessionTTL() time.Duration {
	if c.SessionTTL > 0 {
		return c.SessionTTL
	}
	return 7 * 24 * time.Hour
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func tokenMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// sessionToken mints a signed cookie value whose jti points at the
// session row. The row is the source of truth; revoking it invalidates
// the cookie regardless of its own expiry.
func sessionToken(secret string, s domain.Session, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func sessionIDFromToken(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("session secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.ID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.ID, nil
}

func validSession(ctx context.Context, r repo.Repo, cookie, secret string, now time.Time) bool {
	id, err := sessionIDFromToken(cookie, secret)
	if err != nil {
		return false
	}
	s, err := r.GetSession(ctx, id)
	if err != nil {
		return false
	}
	expires, err := time.Parse(time.RFC3339, s.ExpiresAt)
	if err != nil {
		return false
	}
	return now.Before(expires)
}

// newAuthMiddleware gates everything under basePath except the health
// check and the login endpoint. A request passes with either the bearer
// token or a live session cookie.
func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	loginPath := path.Join(basePath, "auth/login")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == healthPath || req.URL.Path == loginPath {
				next.ServeHTTP(w, req)
				return
			}
			if !cfg.enabled() {
				next.ServeHTTP(w, req)
				return
			}

			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				token, ok := bearerToken(authz)
				if ok && tokenMatches(token, cfg.APIToken) {
					next.ServeHTTP(w, req)
					return
				}
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid credentials", nil))
				return
			}

			if cookie, err := req.Cookie(sessionCookieName); err == nil {
				if validSession(req.Context(), e.Repo, cookie.Value, cfg.SessionSecret, time.Now()) {
					next.ServeHTTP(w, req)
					return
				}
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "authentication required", nil))
		})
	}
}

func registerAuth(api huma.API, e engine.Engine, cfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with the shared password",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		SetCookie http.Cookie `header:"Set-Cookie"`
		Body      envelope[domain.Session]
	}, error) {
		if cfg.WebPassword == "" || !tokenMatches(input.Body.Password, cfg.WebPassword) {
			return nil, newAPIError(http.StatusUnauthorized, "invalid credentials", nil)
		}

		now := time.Now().UTC()
		expires := now.Add(cfg.sessionTTL())
		session := domain.Session{
			ID:        uuid.NewString(),
			CreatedAt: now.Format(time.RFC3339),
			ExpiresAt: expires.Format(time.RFC3339),
		}
		if err := e.Repo.InsertSession(ctx, session); err != nil {
			return nil, handleError(err)
		}
		// opportunistic sweep of stale rows
		_ = e.Repo.DeleteExpiredSessions(ctx, now.Format(time.RFC3339))

		token, err := sessionToken(cfg.SessionSecret, session, expires)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			SetCookie http.Cookie `header:"Set-Cookie"`
			Body      envelope[domain.Session]
		}{
			SetCookie: http.Cookie{
				Name:     sessionCookieName,
				Value:    token,
				Path:     "/",
				Expires:  expires,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			},
			Body: ok(session),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Log out and revoke the session",
	}, func(ctx context.Context, input *struct {
		Cookie string `cookie:"deskhand_session"`
	}) (*struct {
		SetCookie http.Cookie `header:"Set-Cookie"`
		Body      envelope[map[string]string]
	}, error) {
		if input.Cookie != "" {
			if id, err := sessionIDFromToken(input.Cookie, cfg.SessionSecret); err == nil {
				_ = e.Repo.DeleteSession(ctx, id)
			}
		}
		return &struct {
			SetCookie http.Cookie `header:"Set-Cookie"`
			Body      envelope[map[string]string]
		}{
			SetCookie: http.Cookie{
				Name:     sessionCookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			},
			Body: ok(map[string]string{"status": "logged_out"}),
		}, nil
	})
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
