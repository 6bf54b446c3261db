package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/config"
	"github.com/codehub-io/codehub-server/internal/db/models"
)

// contextKey is a custom type for keys local to this middleware package.
type contextKey string

// Context keys local to this middleware package
const (
	ProjectContextKey contextKey = "project_context"
	RequestIDKey      contextKey = "request_id"
)

// GetProjectFromContext retrieves the resolved project from the context
func GetProjectFromContext(ctx context.Context) *models.Project {
	if project, ok := ctx.Value(ProjectContextKey).(*models.Project); ok {
		return project
	}
	return nil
}

// WithProject returns a context carrying the resolved project
func WithProject(ctx context.Context, project *models.Project) context.Context {
	return context.WithValue(ctx, ProjectContextKey, project)
}

// Authentication authenticates the request and adds the user to the
// context. Every route behind this middleware requires a credential: a
// missing or invalid one is a 401, unconditionally.
func Authentication(cfg *config.Config, users models.UserStorer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := tryAuthMethods(r, cfg, users)
			if user == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="codehub", Basic realm="codehub"`)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"message": "401 Unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// tryAuthMethods attempts Bearer token then Basic credentials
func tryAuthMethods(r *http.Request, cfg *config.Config, users models.UserStorer) *models.User {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authenticateBearer(authHeader, cfg, users)
	}
	if strings.HasPrefix(authHeader, "Basic ") {
		return authenticateBasic(r, users)
	}
	return nil
}

// authenticateBearer attempts to authenticate using a JWT bearer token
func authenticateBearer(authHeader string, cfg *config.Config, users models.UserStorer) *models.User {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := auth.VerifyJWTToken(tokenString, cfg.JWTSecret)
	if err != nil {
		return nil
	}

	user, err := users.GetByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}

// authenticateBasic attempts to authenticate using Basic credentials; the
// login part may be a username or an email address
func authenticateBasic(r *http.Request, users models.UserStorer) *models.User {
	login, password, ok := r.BasicAuth()
	if !ok || login == "" || password == "" {
		return nil
	}

	user, err := users.GetByUsername(login)
	if err != nil {
		user, err = users.GetByEmail(login)
		if err != nil {
			return nil
		}
	}

	if !user.CheckPassword(password) {
		return nil
	}
	return user
}
