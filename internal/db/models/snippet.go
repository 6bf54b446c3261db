package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Snippet represents a named code fragment scoped to a project
type Snippet struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ProjectID uint      `json:"project_id" gorm:"not null;index"`
	Project   Project   `json:"-" gorm:"foreignKey:ProjectID"`
	AuthorID  uint      `json:"author_id" gorm:"not null"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	FileName  string    `json:"file_name" gorm:"size:255;not null"`
	Content   string    `json:"code" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for the Snippet model
func (Snippet) TableName() string {
	return "snippets"
}

// SnippetStore provides methods for interacting with snippets in the database
type SnippetStore struct {
	db *gorm.DB
}

// NewSnippetStore creates a new snippet store with the given database connection
func NewSnippetStore(db *gorm.DB) *SnippetStore {
	return &SnippetStore{db: db}
}

// Create inserts a new snippet into the database
func (s *SnippetStore) Create(snippet *Snippet) error {
	return s.db.Create(snippet).Error
}

// GetByID retrieves a snippet belonging to a project by its ID
func (s *SnippetStore) GetByID(projectID, id uint) (*Snippet, error) {
	var snippet Snippet
	err := s.db.Where("project_id = ?", projectID).
		Preload("Author").
		First(&snippet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnippetNotFound
		}
		return nil, err
	}
	return &snippet, nil
}

// Update updates an existing snippet in the database
func (s *SnippetStore) Update(snippet *Snippet) error {
	return s.db.Save(snippet).Error
}

// Delete removes a snippet from the database. Deleting a snippet that does
// not exist returns ErrSnippetNotFound.
func (s *SnippetStore) Delete(projectID, id uint) error {
	res := s.db.Where("project_id = ?", projectID).Delete(&Snippet{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSnippetNotFound
	}
	return nil
}

// ListByProject retrieves all snippets for a project, newest first
func (s *SnippetStore) ListByProject(projectID uint) ([]*Snippet, error) {
	var snippets []*Snippet
	err := s.db.Where("project_id = ?", projectID).
		Preload("Author").
		Order("created_at DESC").
		Find(&snippets).Error
	return snippets, err
}

// CountByProject returns how many snippets a project has
func (s *SnippetStore) CountByProject(projectID uint) (int64, error) {
	var n int64
	err := s.db.Model(&Snippet{}).Where("project_id = ?", projectID).Count(&n).Error
	return n, err
}
