package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/codehub-io/codehub-server/internal/api/handlers"
	hubmiddleware "github.com/codehub-io/codehub-server/internal/api/middleware"
	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/config"
	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/refstore"
	"github.com/codehub-io/codehub-server/internal/service"
)

// SetupRouter configures the HTTP router for the API
func SetupRouter(cfg *config.Config, store *refstore.Store, db *gorm.DB, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(hubmiddleware.Logging())

	// CORS configuration
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	// Persistence stores
	users := models.NewUserStore(db)
	projects := models.NewProjectStore(db)
	members := models.NewMembershipStore(db)
	snippets := models.NewSnippetStore(db)

	// Domain services
	projectService := service.NewProjectService(projects, members, store, cfg.DefaultBranch, logger)
	membershipManager := service.NewMembershipManager(members, users, logger)
	snippetManager := service.NewSnippetManager(snippets, members, logger)

	// Open endpoints: registration and session issuance
	r.Post("/users", handlers.RegisterUser(users))
	r.Post("/session", handlers.CreateSession(cfg, users))

	// Everything under /projects requires a credential
	r.Route("/projects", func(r chi.Router) {
		r.Use(hubmiddleware.Authentication(cfg, users))

		r.Get("/", handlers.ListProjects(projectService))
		r.Post("/", handlers.CreateProject(projectService))

		r.Route("/{idOrCode}", func(r chi.Router) {
			r.Use(projectContext(projectService))

			r.Get("/", handlers.GetProject())
			r.Put("/", handlers.UpdateProject(projectService))
			r.Delete("/", handlers.DeleteProject(projectService))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handlers.ListMembers(membershipManager))
				r.Post("/", handlers.AddMembers(membershipManager))
				r.Put("/", handlers.UpdateMembers(membershipManager))
				r.Delete("/", handlers.RemoveMembers(membershipManager))
			})

			r.Route("/snippets", func(r chi.Router) {
				r.Get("/", handlers.ListSnippets(snippetManager))
				r.Post("/", handlers.CreateSnippet(snippetManager))
				r.Get("/{snippetID}", handlers.GetSnippet(snippetManager))
				r.Put("/{snippetID}", handlers.UpdateSnippet(snippetManager))
				r.Delete("/{snippetID}", handlers.DeleteSnippet(snippetManager))
				r.Get("/{snippetID}/raw", handlers.GetRawSnippet(snippetManager))
			})

			r.Route("/repository", func(r chi.Router) {
				r.Get("/branches", handlers.ListBranches(projectService))
				r.Get("/branches/{branchName}", handlers.GetBranch(projectService))
				r.Get("/tags", handlers.ListTags(projectService))
				r.Get("/commits/{rev}/blob", handlers.GetBlob(projectService))
			})
		})
	})

	return r
}

// projectContext resolves the {idOrCode} URL parameter into a project the
// acting user may read and adds it to the request context. Resolution and
// the read-access check share one code path, so an unauthorized project is
// indistinguishable from a missing one.
func projectContext(projects *service.ProjectService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUserFromContext(r.Context())
			idOrCode := chi.URLParam(r, "idOrCode")

			project, err := projects.Get(user, idOrCode)
			if err != nil {
				handlers.RenderError(w, r, err)
				return
			}

			ctx := hubmiddleware.WithProject(r.Context(), project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
