package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/api/middleware"
	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/service"
)

// ProjectResponse represents the response format for project operations
type ProjectResponse struct {
	ID                   uint         `json:"id"`
	Code                 string       `json:"code"`
	Name                 string       `json:"name"`
	Description          string       `json:"description"`
	Owner                UserResponse `json:"owner"`
	DefaultBranch        string       `json:"default_branch"`
	IssuesEnabled        bool         `json:"issues_enabled"`
	WallEnabled          bool         `json:"wall_enabled"`
	MergeRequestsEnabled bool         `json:"merge_requests_enabled"`
	WikiEnabled          bool         `json:"wiki_enabled"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// ProjectRequest represents the request format for project creation/update
type ProjectRequest struct {
	Name                 string `json:"name"`
	Code                 string `json:"code,omitempty"`
	Description          string `json:"description,omitempty"`
	DefaultBranch        string `json:"default_branch,omitempty"`
	IssuesEnabled        *bool  `json:"issues_enabled,omitempty"`
	WallEnabled          *bool  `json:"wall_enabled,omitempty"`
	MergeRequestsEnabled *bool  `json:"merge_requests_enabled,omitempty"`
	WikiEnabled          *bool  `json:"wiki_enabled,omitempty"`
}

func (req ProjectRequest) toParams() service.ProjectParams {
	return service.ProjectParams{
		Name:                 req.Name,
		Code:                 req.Code,
		Description:          req.Description,
		DefaultBranch:        req.DefaultBranch,
		IssuesEnabled:        req.IssuesEnabled,
		WallEnabled:          req.WallEnabled,
		MergeRequestsEnabled: req.MergeRequestsEnabled,
		WikiEnabled:          req.WikiEnabled,
	}
}

// newProjectResponse converts a project entity into its response form
func newProjectResponse(project *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:                   project.ID,
		Code:                 project.Code,
		Name:                 project.Name,
		Description:          project.Description,
		Owner:                newUserResponse(&project.Owner),
		DefaultBranch:        project.DefaultBranch,
		IssuesEnabled:        project.IssuesEnabled,
		WallEnabled:          project.WallEnabled,
		MergeRequestsEnabled: project.MergeRequestsEnabled,
		WikiEnabled:          project.WikiEnabled,
		CreatedAt:            project.CreatedAt,
		UpdatedAt:            project.UpdatedAt,
	}
}

// ListProjects lists the projects the acting user can read
func ListProjects(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())

		list, err := projects.List(user)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		responses := make([]ProjectResponse, 0, len(list))
		for _, p := range list {
			responses = append(responses, newProjectResponse(p))
		}
		render.JSON(w, r, responses)
	}
}

// CreateProject handles the creation of a new project
func CreateProject(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())

		var req ProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		project, err := projects.Create(user, req.toParams())
		if err != nil {
			RenderError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newProjectResponse(project))
	}
}

// GetProject returns the project resolved by the route middleware
func GetProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}
		render.JSON(w, r, newProjectResponse(project))
	}
}

// UpdateProject applies project setting changes
func UpdateProject(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		var req ProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		updated, err := projects.Update(user, project, req.toParams())
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, newProjectResponse(updated))
	}
}

// DeleteProject removes a project
func DeleteProject(projects *service.ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		if err := projects.Delete(user, project); err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"deleted": true})
	}
}
