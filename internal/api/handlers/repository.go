package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/api/middleware"
	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/service"
)

// CommitResponse represents a commit in API responses
type CommitResponse struct {
	ID           string    `json:"id"`
	Author       string    `json:"author"`
	Message      string    `json:"message"`
	ShortMessage string    `json:"short_message"`
	ParentIDs    []string  `json:"parent_ids"`
	AuthoredDate time.Time `json:"authored_date"`
}

// RefResponse represents a branch or tag with its resolved commit
type RefResponse struct {
	Name   string         `json:"name"`
	Commit CommitResponse `json:"commit"`
}

// newRefResponse converts a repository ref into its response form
func newRefResponse(ref service.RepositoryRef) RefResponse {
	commit := ref.Commit
	parents := commit.Parents
	if parents == nil {
		parents = []string{}
	}
	return RefResponse{
		Name: ref.Name,
		Commit: CommitResponse{
			ID:           commit.Hash,
			Author:       commit.Author,
			Message:      commit.Message,
			ShortMessage: commit.ShortMessage(),
			ParentIDs:    parents,
			AuthoredDate: commit.Timestamp,
		},
	}
}

func renderRefs(w http.ResponseWriter, r *http.Request, refs []service.RepositoryRef, err error) {
	if err != nil {
		RenderError(w, r, err)
		return
	}
	responses := make([]RefResponse, 0, len(refs))
	for _, ref := range refs {
		responses = append(responses, newRefResponse(ref))
	}
	render.JSON(w, r, responses)
}

// ListBranches returns the project's branches, ascending by name
func ListBranches(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		refs, err := projects.ListBranches(user, project)
		renderRefs(w, r, refs, err)
	}
}

// GetBranch returns a single branch with its resolved commit
func GetBranch(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		ref, err := projects.GetBranch(user, project, chi.URLParam(r, "branchName"))
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, newRefResponse(*ref))
	}
}

// ListTags returns the project's tags, descending by name
func ListTags(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		refs, err := projects.ListTags(user, project)
		renderRefs(w, r, refs, err)
	}
}

// GetBlob streams the raw content of a file at a revision
func GetBlob(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		filePath := r.URL.Query().Get("filepath")
		if filePath == "" {
			renderNotFound(w, r)
			return
		}

		data, err := projects.GetBlob(user, project, chi.URLParam(r, "rev"), filePath)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
