package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/api/middleware"
	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/service"
)

// SnippetResponse represents the response format for snippet operations
type SnippetResponse struct {
	ID        uint         `json:"id"`
	Title     string       `json:"title"`
	FileName  string       `json:"file_name"`
	Content   string       `json:"code"`
	Author    UserResponse `json:"author"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SnippetRequest represents the request format for snippet creation/update.
// On update, absent fields are left unchanged.
type SnippetRequest struct {
	Title    *string `json:"title"`
	FileName *string `json:"file_name"`
	Content  *string `json:"code"`
}

// newSnippetResponse converts a snippet entity into its response form
func newSnippetResponse(snippet *models.Snippet) SnippetResponse {
	return SnippetResponse{
		ID:        snippet.ID,
		Title:     snippet.Title,
		FileName:  snippet.FileName,
		Content:   snippet.Content,
		Author:    newUserResponse(&snippet.Author),
		CreatedAt: snippet.CreatedAt,
		UpdatedAt: snippet.UpdatedAt,
	}
}

// snippetID parses the snippet id URL parameter
func snippetID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "snippetID"), 10, 32)
	return uint(id), err == nil
}

func value(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// ListSnippets lists a project's snippets
func ListSnippets(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		list, err := snippets.List(user, project)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		responses := make([]SnippetResponse, 0, len(list))
		for _, s := range list {
			responses = append(responses, newSnippetResponse(s))
		}
		render.JSON(w, r, responses)
	}
}

// CreateSnippet stores a new snippet on the project
func CreateSnippet(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		var req SnippetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		snippet, err := snippets.Create(user, project, value(req.Title), value(req.FileName), value(req.Content))
		if err != nil {
			RenderError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newSnippetResponse(snippet))
	}
}

// GetSnippet returns a single snippet
func GetSnippet(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		id, ok := snippetID(r)
		if project == nil || !ok {
			renderNotFound(w, r)
			return
		}

		snippet, err := snippets.Get(user, project, id)
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, newSnippetResponse(snippet))
	}
}

// UpdateSnippet applies a partial snippet update
func UpdateSnippet(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		id, ok := snippetID(r)
		if project == nil || !ok {
			renderNotFound(w, r)
			return
		}

		var req SnippetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		snippet, err := snippets.Update(user, project, id, service.SnippetPatch{
			Title:    req.Title,
			FileName: req.FileName,
			Content:  req.Content,
		})
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, newSnippetResponse(snippet))
	}
}

// DeleteSnippet removes a snippet
func DeleteSnippet(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		id, ok := snippetID(r)
		if project == nil || !ok {
			renderNotFound(w, r)
			return
		}

		if err := snippets.Delete(user, project, id); err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"deleted": true})
	}
}

// GetRawSnippet returns the snippet content bytes with no transformation
func GetRawSnippet(snippets *service.SnippetManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		id, ok := snippetID(r)
		if project == nil || !ok {
			renderNotFound(w, r)
			return
		}

		content, err := snippets.RawContent(user, project, id)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}
}
