package service

import (
	"log"

	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/domain"
)

// MembershipManager owns the user-project relation and enforces who may
// change it. Every mutation requires the acting user to hold at least
// master access on the project.
type MembershipManager struct {
	members models.MembershipStorer
	users   models.UserStorer
	logger  *log.Logger
}

// NewMembershipManager creates a membership manager with its dependencies
func NewMembershipManager(members models.MembershipStorer, users models.UserStorer, logger *log.Logger) *MembershipManager {
	return &MembershipManager{members: members, users: users, logger: logger}
}

// List returns the project's memberships. Requires read access; the
// implicit owner entry is the caller's concern.
func (m *MembershipManager) List(actingUser *models.User, project *models.Project) ([]*models.Membership, error) {
	if err := checkAccess(m.members, actingUser, project, models.GuestAccess); err != nil {
		return nil, err
	}
	return m.members.ListByProject(project.ID)
}

// AddMembers grants the access level to each user id that has no membership
// on the project yet and returns the number created. User ids that are
// already members, do not exist, or name the owner are skipped; existing
// rows keep their level (use UpdateMembers to change it).
func (m *MembershipManager) AddMembers(actingUser *models.User, project *models.Project, userIDs []uint, accessLevel string) (int, error) {
	if err := m.requireMaster(actingUser, project); err != nil {
		return 0, err
	}
	if !models.IsValidAccessLevel(accessLevel) {
		return 0, domain.Validation("project_access", "invalid access level")
	}
	if len(userIDs) == 0 {
		return 0, domain.Validation("user_ids", "is required")
	}

	eligible, err := m.eligibleUserIDs(project, userIDs)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	created, err := m.members.AddMissing(project.ID, eligible, accessLevel)
	if err != nil {
		return 0, err
	}

	m.logger.Printf("members added: project=%d level=%s created=%d", project.ID, accessLevel, created)
	return created, nil
}

// UpdateMembers sets the access level on existing memberships for the given
// user ids and returns the number changed. Non-members are a no-op.
func (m *MembershipManager) UpdateMembers(actingUser *models.User, project *models.Project, userIDs []uint, accessLevel string) (int, error) {
	if err := m.requireMaster(actingUser, project); err != nil {
		return 0, err
	}
	if !models.IsValidAccessLevel(accessLevel) {
		return 0, domain.Validation("project_access", "invalid access level")
	}
	if len(userIDs) == 0 {
		return 0, domain.Validation("user_ids", "is required")
	}

	changed, err := m.members.SetLevel(project.ID, userIDs, accessLevel)
	if err != nil {
		return 0, err
	}

	m.logger.Printf("members updated: project=%d level=%s changed=%d", project.ID, accessLevel, changed)
	return changed, nil
}

// RemoveMembers deletes the identified memberships from the project and
// returns the number removed. Ids that match no membership of this project
// are ignored.
func (m *MembershipManager) RemoveMembers(actingUser *models.User, project *models.Project, membershipIDs []uint) (int, error) {
	if err := m.requireMaster(actingUser, project); err != nil {
		return 0, err
	}
	if len(membershipIDs) == 0 {
		return 0, domain.Validation("user_ids", "is required")
	}

	removed, err := m.members.RemoveByIDs(project.ID, membershipIDs)
	if err != nil {
		return 0, err
	}

	m.logger.Printf("members removed: project=%d removed=%d", project.ID, removed)
	return removed, nil
}

// requireMaster checks the acting user holds at least master access
func (m *MembershipManager) requireMaster(actingUser *models.User, project *models.Project) error {
	return checkAccess(m.members, actingUser, project, models.MasterAccess)
}

// eligibleUserIDs filters the requested ids down to users that exist and
// are not the project owner
func (m *MembershipManager) eligibleUserIDs(project *models.Project, userIDs []uint) ([]uint, error) {
	users, err := m.users.GetByIDs(userIDs)
	if err != nil {
		return nil, err
	}

	eligible := make([]uint, 0, len(users))
	for _, u := range users {
		if u.ID == project.OwnerID {
			continue
		}
		eligible = append(eligible, u.ID)
	}
	return eligible, nil
}
