package service

import (
	"errors"
	"log"
	"strings"

	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/domain"
)

// SnippetPatch carries a partial snippet update. Nil fields are left
// untouched.
type SnippetPatch struct {
	Title    *string
	FileName *string
	Content  *string
}

// SnippetManager owns snippet creation, mutation, and deletion scoped to a
// project. The access level required to work with snippets defaults to
// read access and is configurable per deployment.
type SnippetManager struct {
	snippets      models.SnippetStorer
	members       models.MembershipStorer
	requiredLevel string
	logger        *log.Logger
}

// NewSnippetManager creates a snippet manager with its dependencies
func NewSnippetManager(snippets models.SnippetStorer, members models.MembershipStorer, logger *log.Logger) *SnippetManager {
	return &SnippetManager{
		snippets:      snippets,
		members:       members,
		requiredLevel: models.GuestAccess,
		logger:        logger,
	}
}

// List returns the project's snippets, newest first
func (m *SnippetManager) List(actingUser *models.User, project *models.Project) ([]*models.Snippet, error) {
	if err := m.requireAccess(actingUser, project); err != nil {
		return nil, err
	}
	return m.snippets.ListByProject(project.ID)
}

// Create stores a new snippet authored by the acting user
func (m *SnippetManager) Create(actingUser *models.User, project *models.Project, title, fileName, content string) (*models.Snippet, error) {
	if err := m.requireAccess(actingUser, project); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Validation("title", "is required")
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, domain.Validation("file_name", "is required")
	}
	if content == "" {
		return nil, domain.Validation("code", "is required")
	}

	snippet := &models.Snippet{
		ProjectID: project.ID,
		AuthorID:  actingUser.ID,
		Author:    *actingUser,
		Title:     title,
		FileName:  fileName,
		Content:   content,
	}
	if err := m.snippets.Create(snippet); err != nil {
		return nil, err
	}

	m.logger.Printf("snippet created: project=%d id=%d author=%d", project.ID, snippet.ID, actingUser.ID)
	return snippet, nil
}

// Get retrieves a snippet by id within the project
func (m *SnippetManager) Get(actingUser *models.User, project *models.Project, snippetID uint) (*models.Snippet, error) {
	if err := m.requireAccess(actingUser, project); err != nil {
		return nil, err
	}
	return m.find(project, snippetID)
}

// Update applies a partial update; fields absent from the patch keep their
// current value. Returns the updated snippet.
func (m *SnippetManager) Update(actingUser *models.User, project *models.Project, snippetID uint, patch SnippetPatch) (*models.Snippet, error) {
	if err := m.requireAccess(actingUser, project); err != nil {
		return nil, err
	}

	snippet, err := m.find(project, snippetID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.Validation("title", "cannot be empty")
		}
		snippet.Title = title
	}
	if patch.FileName != nil {
		fileName := strings.TrimSpace(*patch.FileName)
		if fileName == "" {
			return nil, domain.Validation("file_name", "cannot be empty")
		}
		snippet.FileName = fileName
	}
	if patch.Content != nil {
		snippet.Content = *patch.Content
	}

	if err := m.snippets.Update(snippet); err != nil {
		return nil, err
	}

	m.logger.Printf("snippet updated: project=%d id=%d", project.ID, snippet.ID)
	return snippet, nil
}

// Delete removes a snippet. Deleting an id that no longer exists fails with
// NotFound; deletion is not idempotent.
func (m *SnippetManager) Delete(actingUser *models.User, project *models.Project, snippetID uint) error {
	if err := m.requireAccess(actingUser, project); err != nil {
		return err
	}

	if err := m.snippets.Delete(project.ID, snippetID); err != nil {
		if errors.Is(err, models.ErrSnippetNotFound) {
			return domain.NotFound("snippet")
		}
		return err
	}

	m.logger.Printf("snippet deleted: project=%d id=%d", project.ID, snippetID)
	return nil
}

// RawContent returns the snippet content bytes with no transformation
func (m *SnippetManager) RawContent(actingUser *models.User, project *models.Project, snippetID uint) ([]byte, error) {
	snippet, err := m.Get(actingUser, project, snippetID)
	if err != nil {
		return nil, err
	}
	return []byte(snippet.Content), nil
}

func (m *SnippetManager) requireAccess(actingUser *models.User, project *models.Project) error {
	return checkAccess(m.members, actingUser, project, m.requiredLevel)
}

func (m *SnippetManager) find(project *models.Project, snippetID uint) (*models.Snippet, error) {
	snippet, err := m.snippets.GetByID(project.ID, snippetID)
	if err != nil {
		if errors.Is(err, models.ErrSnippetNotFound) {
			return nil, domain.NotFound("snippet")
		}
		return nil, err
	}
	return snippet, nil
}
