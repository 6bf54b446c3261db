package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Access levels, ordered. Owner is implicit for a project's owner and is
// never stored as a membership row.
const (
	GuestAccess     = "guest"
	ReporterAccess  = "reporter"
	DeveloperAccess = "developer"
	MasterAccess    = "master"
	OwnerAccess     = "owner"
)

// accessRank orders the levels for comparisons
var accessRank = map[string]int{
	GuestAccess:     10,
	ReporterAccess:  20,
	DeveloperAccess: 30,
	MasterAccess:    40,
	OwnerAccess:     50,
}

// IsValidAccessLevel checks if an access level can be stored on a membership
func IsValidAccessLevel(level string) bool {
	_, ok := accessRank[level]
	return ok && level != OwnerAccess
}

// AccessAtLeast checks if the given level meets the required level
func AccessAtLeast(level, required string) bool {
	return accessRank[level] >= accessRank[required]
}

// Membership represents a user's access level on a project.
// At most one membership exists per (user, project) pair.
type Membership struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_project"`
	User        User      `json:"user" gorm:"foreignKey:UserID"`
	ProjectID   uint      `json:"project_id" gorm:"not null;uniqueIndex:idx_user_project"`
	Project     Project   `json:"-" gorm:"foreignKey:ProjectID"`
	AccessLevel string    `json:"access_level" gorm:"size:20;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName sets the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// MembershipStore provides methods for interacting with memberships in the database
type MembershipStore struct {
	db *gorm.DB
}

// NewMembershipStore creates a new membership store with the given database connection
func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// GetByUserAndProject retrieves a membership by user ID and project ID
func (s *MembershipStore) GetByUserAndProject(userID, projectID uint) (*Membership, error) {
	var m Membership
	err := s.db.Where("user_id = ? AND project_id = ?", userID, projectID).
		Preload("User").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListByProject retrieves all memberships for a project
func (s *MembershipStore) ListByProject(projectID uint) ([]*Membership, error) {
	var ms []*Membership
	err := s.db.Where("project_id = ?", projectID).
		Preload("User").
		Order("user_id").
		Find(&ms).Error
	return ms, err
}

// AddMissing creates one membership per user id that has no membership on
// the project yet and returns the number created. Existing rows are left
// untouched. The whole batch runs in a single transaction.
func (s *MembershipStore) AddMissing(projectID uint, userIDs []uint, level string) (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, uid := range userIDs {
			var n int64
			if err := tx.Model(&Membership{}).
				Where("user_id = ? AND project_id = ?", uid, projectID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			m := &Membership{UserID: uid, ProjectID: projectID, AccessLevel: level}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// SetLevel updates the access level on existing memberships for the given
// user ids and returns the number of rows changed. Non-members are skipped.
func (s *MembershipStore) SetLevel(projectID uint, userIDs []uint, level string) (int, error) {
	res := s.db.Model(&Membership{}).
		Where("project_id = ? AND user_id IN ?", projectID, userIDs).
		Update("access_level", level)
	return int(res.RowsAffected), res.Error
}

// RemoveByIDs deletes the identified memberships, constrained to the
// project, and returns the number of rows removed. Unknown ids are ignored.
func (s *MembershipStore) RemoveByIDs(projectID uint, membershipIDs []uint) (int, error) {
	res := s.db.Where("project_id = ? AND id IN ?", projectID, membershipIDs).
		Delete(&Membership{})
	return int(res.RowsAffected), res.Error
}

// CountByProjectAndLevel returns how many memberships a project has at a level
func (s *MembershipStore) CountByProjectAndLevel(projectID uint, level string) (int64, error) {
	var n int64
	err := s.db.Model(&Membership{}).
		Where("project_id = ? AND access_level = ?", projectID, level).
		Count(&n).Error
	return n, err
}

// AccessLevelFor resolves the effective access level a user holds on a
// project. The owner holds OwnerAccess implicitly; users without a
// membership hold nothing and ok is false.
func (s *MembershipStore) AccessLevelFor(user *User, project *Project) (string, bool, error) {
	if user == nil {
		return "", false, nil
	}
	if project.OwnerID == user.ID {
		return OwnerAccess, true, nil
	}

	m, err := s.GetByUserAndProject(user.ID, project.ID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.AccessLevel, true, nil
}
