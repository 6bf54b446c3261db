package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/config"
	"github.com/codehub-io/codehub-server/internal/db/models"
)

// SessionRequest represents the request format for session creation
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse carries the issued token along with the user
type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// CreateSession verifies credentials and issues a bearer token
func CreateSession(cfg *config.Config, users models.UserStorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		user, err := users.GetByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"message": "401 Unauthorized"})
			return
		}

		token, err := auth.GenerateJWTToken(user.ID, cfg.JWTSecret, cfg.TokenDuration)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, SessionResponse{Token: token, User: newUserResponse(user)})
	}
}
