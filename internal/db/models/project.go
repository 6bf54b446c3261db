package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"
)

// Project represents a hosted project with its repository-backed resources
type Project struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	Code        string `json:"code" gorm:"uniqueIndex;size:255;not null"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"size:2000"`
	OwnerID     uint   `json:"owner_id" gorm:"not null"`
	Owner       User   `json:"owner" gorm:"foreignKey:OwnerID"`

	DefaultBranch string `json:"default_branch" gorm:"size:255;not null;default:master"`

	// Feature flags
	IssuesEnabled        bool `json:"issues_enabled" gorm:"default:true"`
	WallEnabled          bool `json:"wall_enabled" gorm:"default:true"`
	MergeRequestsEnabled bool `json:"merge_requests_enabled" gorm:"default:true"`
	WikiEnabled          bool `json:"wiki_enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// Slugify derives a URL-safe project code from a display name
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// ProjectStore provides methods for interacting with projects in the database
type ProjectStore struct {
	db *gorm.DB
}

// NewProjectStore creates a new project store with the given database connection
func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create inserts a new project into the database
func (s *ProjectStore) Create(project *Project) error {
	return s.db.Create(project).Error
}

// GetByID retrieves a project by its ID
func (s *ProjectStore) GetByID(id uint) (*Project, error) {
	var project Project
	err := s.db.Preload("Owner").First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetByCode retrieves a project by its unique code
func (s *ProjectStore) GetByCode(code string) (*Project, error) {
	var project Project
	err := s.db.Where("code = ?", code).Preload("Owner").First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Update updates an existing project in the database
func (s *ProjectStore) Update(project *Project) error {
	return s.db.Save(project).Error
}

// Delete removes a project from the database along with its owned rows
func (s *ProjectStore) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&Snippet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&Membership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{}, id).Error
	})
}

// ListAccessible retrieves the projects a user owns or is a member of,
// most recently active first
func (s *ProjectStore) ListAccessible(userID uint) ([]*Project, error) {
	var projects []*Project
	err := s.db.
		Joins("LEFT JOIN memberships ON memberships.project_id = projects.id AND memberships.user_id = ?", userID).
		Where("projects.owner_id = ? OR memberships.id IS NOT NULL", userID).
		Preload("Owner").
		Order("projects.updated_at DESC").
		Find(&projects).Error
	return projects, err
}

// Count returns the total number of projects
func (s *ProjectStore) Count() (int64, error) {
	var n int64
	err := s.db.Model(&Project{}).Count(&n).Error
	return n, err
}

// NextAvailableCode returns base if no project uses it yet, otherwise the
// first base-N suffix that is free
func (s *ProjectStore) NextAvailableCode(base string) (string, error) {
	code := base
	for i := 2; ; i++ {
		var n int64
		if err := s.db.Model(&Project{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
		code = fmt.Sprintf("%s-%d", base, i)
	}
}
