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

// MemberRequest represents the request format for member mutations. For
// DELETE the user_ids field carries membership ids.
type MemberRequest struct {
	UserIDs       []uint `json:"user_ids"`
	ProjectAccess string `json:"project_access,omitempty"`
}

// MemberResponse represents a single membership in API responses
type MemberResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	AccessLevel string    `json:"access_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListMembers shows the project's memberships plus the implicit owner entry
func ListMembers(memberships *service.MembershipManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		list, err := memberships.List(user, project)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		members := make([]MemberResponse, 0, len(list)+1)
		members = append(members, MemberResponse{
			UserID:      project.OwnerID,
			Username:    project.Owner.Username,
			Email:       project.Owner.Email,
			AccessLevel: models.OwnerAccess,
			CreatedAt:   project.CreatedAt,
		})
		for _, m := range list {
			members = append(members, MemberResponse{
				ID:          m.ID,
				UserID:      m.UserID,
				Username:    m.User.Username,
				Email:       m.User.Email,
				AccessLevel: m.AccessLevel,
				CreatedAt:   m.CreatedAt,
			})
		}
		render.JSON(w, r, members)
	}
}

// AddMembers grants an access level to a set of users
func AddMembers(memberships *service.MembershipManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		var req MemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		created, err := memberships.AddMembers(user, project, req.UserIDs, req.ProjectAccess)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]int{"created": created})
	}
}

// UpdateMembers re-sets the access level on existing memberships
func UpdateMembers(memberships *service.MembershipManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		var req MemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		updated, err := memberships.UpdateMembers(user, project, req.UserIDs, req.ProjectAccess)
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]int{"updated": updated})
	}
}

// RemoveMembers deletes memberships by id
func RemoveMembers(memberships *service.MembershipManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		project := middleware.GetProjectFromContext(r.Context())
		if project == nil {
			renderNotFound(w, r)
			return
		}

		var req MemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		removed, err := memberships.RemoveMembers(user, project, req.UserIDs)
		if err != nil {
			RenderError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]int{"removed": removed})
	}
}
