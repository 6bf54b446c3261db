// Package service holds the domain operations behind the API: project
// orchestration, membership management and snippets. Every operation takes
// the acting user explicitly and returns errors from the domain taxonomy;
// no HTTP types appear below this line.
package service

import (
	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/domain"
)

// checkAccess verifies the acting user holds at least the required level on
// the project. A nil user is unauthenticated; an authenticated user without
// the level gets Forbidden, which the API boundary collapses into NotFound.
func checkAccess(members models.MembershipStorer, user *models.User, project *models.Project, required string) error {
	if user == nil {
		return domain.Unauthenticated()
	}

	level, ok, err := members.AccessLevelFor(user, project)
	if err != nil {
		return err
	}
	if !ok || !models.AccessAtLeast(level, required) {
		return domain.Forbidden("insufficient access level")
	}
	return nil
}
