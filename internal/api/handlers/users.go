package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/db/models"
)

// UserResponse represents the response format for user operations
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest represents the request format for user registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// newUserResponse converts a user entity into its response form
func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// RegisterUser handles user registration
func RegisterUser(users models.UserStorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderBadRequest(w, r)
			return
		}

		if req.Username == "" || req.Email == "" || req.Password == "" {
			http.Error(w, "Username, email, and password are required", http.StatusBadRequest)
			return
		}
		if !emailPattern.MatchString(req.Email) {
			http.Error(w, "Invalid email format", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 8 {
			http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
			return
		}

		user, err := models.NewUser(req.Username, req.Email, req.Password)
		if err != nil {
			http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if err := users.Create(user); err != nil {
			http.Error(w, "Failed to register user", http.StatusConflict)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newUserResponse(user))
	}
}
