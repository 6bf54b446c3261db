package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/render"

	"github.com/codehub-io/codehub-server/internal/domain"
)

// RenderError is the single place domain errors become HTTP responses.
// Forbidden collapses into NotFound so a probing client cannot distinguish
// "exists but forbidden" from "does not exist"; the 404 body is uniform.
// Validation failures also map to 404, preserving the historical contract.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"message": "401 Unauthorized"})
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrValidation):
		renderNotFound(w, r)
	default:
		log.Printf("internal error on %s %s: %v", r.Method, r.URL.Path, err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"message": "500 Internal Server Error"})
	}
}

// renderNotFound writes the uniform not-found response
func renderNotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, map[string]string{"message": "404 Not found"})
}

// renderBadRequest reports an unparseable request body
func renderBadRequest(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"message": "400 Bad Request"})
}
