package service

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/domain"
	"github.com/codehub-io/codehub-server/internal/refstore"
)

// RepositoryRef is a branch or tag together with the commit it points at
type RepositoryRef struct {
	Name   string
	Commit *refstore.Commit
}

// ProjectParams carries the caller-supplied attributes for project
// creation and update. Nil flag pointers mean "leave the default".
type ProjectParams struct {
	Name                 string
	Code                 string
	Description          string
	DefaultBranch        string
	IssuesEnabled        *bool
	WallEnabled          *bool
	MergeRequestsEnabled *bool
	WikiEnabled          *bool
}

// ProjectService orchestrates project CRUD and delegates repository reads
// to the store adapter. Access control runs on every operation.
type ProjectService struct {
	projects      models.ProjectStorer
	members       models.MembershipStorer
	store         *refstore.Store
	defaultBranch string
	logger        *log.Logger
}

// NewProjectService creates a project service with its dependencies
func NewProjectService(projects models.ProjectStorer, members models.MembershipStorer, store *refstore.Store, defaultBranch string, logger *log.Logger) *ProjectService {
	return &ProjectService{
		projects:      projects,
		members:       members,
		store:         store,
		defaultBranch: defaultBranch,
		logger:        logger,
	}
}

// List returns the projects the acting user owns or is a member of, most
// recently active first
func (s *ProjectService) List(actingUser *models.User) ([]*models.Project, error) {
	if actingUser == nil {
		return nil, domain.Unauthenticated()
	}
	return s.projects.ListAccessible(actingUser.ID)
}

// Create persists a new project owned by the acting user and initializes
// its store repository. The owner needs no membership row; ownership grants
// the highest access level implicitly.
func (s *ProjectService) Create(actingUser *models.User, params ProjectParams) (*models.Project, error) {
	if actingUser == nil {
		return nil, domain.Unauthenticated()
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.Validation("name", "is required")
	}

	base := strings.TrimSpace(params.Code)
	if base == "" {
		base = models.Slugify(name)
	}
	if base == "" || base != models.Slugify(base) {
		return nil, domain.Validation("code", "must be URL-safe")
	}
	code, err := s.projects.NextAvailableCode(base)
	if err != nil {
		return nil, err
	}

	defaultBranch := params.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = s.defaultBranch
	}

	project := &models.Project{
		Code:                 code,
		Name:                 name,
		Description:          params.Description,
		OwnerID:              actingUser.ID,
		Owner:                *actingUser,
		DefaultBranch:        defaultBranch,
		IssuesEnabled:        flag(params.IssuesEnabled, true),
		WallEnabled:          flag(params.WallEnabled, true),
		MergeRequestsEnabled: flag(params.MergeRequestsEnabled, true),
		WikiEnabled:          flag(params.WikiEnabled, true),
	}

	if err := s.projects.Create(project); err != nil {
		return nil, err
	}

	if _, err := s.store.Init(code, defaultBranch); err != nil {
		// keep the database consistent with the disk
		if derr := s.projects.Delete(project.ID); derr != nil {
			s.logger.Printf("failed to roll back project %d after store init error: %v", project.ID, derr)
		}
		return nil, err
	}

	s.logger.Printf("project created: id=%d code=%s owner=%d", project.ID, project.Code, actingUser.ID)
	return project, nil
}

// Get resolves a project by numeric id or unique code and verifies the
// acting user may read it. Unauthorized lookups are indistinguishable from
// missing projects at the API boundary.
func (s *ProjectService) Get(actingUser *models.User, idOrCode string) (*models.Project, error) {
	if actingUser == nil {
		return nil, domain.Unauthenticated()
	}

	project, err := s.find(idOrCode)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(s.members, actingUser, project, models.GuestAccess); err != nil {
		return nil, err
	}
	return project, nil
}

// find looks a project up by numeric id first, falling back to code match
func (s *ProjectService) find(idOrCode string) (*models.Project, error) {
	if id, err := strconv.ParseUint(idOrCode, 10, 32); err == nil {
		project, err := s.projects.GetByID(uint(id))
		if err == nil {
			return project, nil
		}
		if !errors.Is(err, models.ErrProjectNotFound) {
			return nil, err
		}
	}

	project, err := s.projects.GetByCode(idOrCode)
	if err != nil {
		if errors.Is(err, models.ErrProjectNotFound) {
			return nil, domain.NotFound("project")
		}
		return nil, err
	}
	return project, nil
}

// Update applies project attribute changes; only the owner may do that
func (s *ProjectService) Update(actingUser *models.User, project *models.Project, params ProjectParams) (*models.Project, error) {
	if actingUser == nil {
		return nil, domain.Unauthenticated()
	}
	if actingUser.ID != project.OwnerID {
		return nil, domain.Forbidden("only the project owner can update the project")
	}

	if name := strings.TrimSpace(params.Name); name != "" {
		project.Name = name
	}
	if params.Description != "" {
		project.Description = params.Description
	}
	if params.DefaultBranch != "" {
		project.DefaultBranch = params.DefaultBranch
	}
	if params.IssuesEnabled != nil {
		project.IssuesEnabled = *params.IssuesEnabled
	}
	if params.WallEnabled != nil {
		project.WallEnabled = *params.WallEnabled
	}
	if params.MergeRequestsEnabled != nil {
		project.MergeRequestsEnabled = *params.MergeRequestsEnabled
	}
	if params.WikiEnabled != nil {
		project.WikiEnabled = *params.WikiEnabled
	}

	if err := s.projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project, its owned rows, and its store repository;
// only the owner may do that
func (s *ProjectService) Delete(actingUser *models.User, project *models.Project) error {
	if actingUser == nil {
		return domain.Unauthenticated()
	}
	if actingUser.ID != project.OwnerID {
		return domain.Forbidden("only the project owner can delete the project")
	}

	if err := s.projects.Delete(project.ID); err != nil {
		return err
	}
	if err := s.store.Remove(project.Code); err != nil {
		s.logger.Printf("failed to remove store repository for project %s: %v", project.Code, err)
	}

	s.logger.Printf("project deleted: id=%d code=%s", project.ID, project.Code)
	return nil
}

// ListBranches returns the project's branches in ascending lexicographic
// order by name, each with its resolved commit
func (s *ProjectService) ListBranches(actingUser *models.User, project *models.Project) ([]RepositoryRef, error) {
	return s.listRefs(actingUser, project, refstore.RefBranch, false)
}

// ListTags returns the project's tags in descending lexicographic order by
// name, each with its resolved commit. The ordering asymmetry with
// ListBranches is part of the API contract.
func (s *ProjectService) ListTags(actingUser *models.User, project *models.Project) ([]RepositoryRef, error) {
	return s.listRefs(actingUser, project, refstore.RefTag, true)
}

func (s *ProjectService) listRefs(actingUser *models.User, project *models.Project, kind refstore.RefKind, descending bool) ([]RepositoryRef, error) {
	if err := checkAccess(s.members, actingUser, project, models.GuestAccess); err != nil {
		return nil, err
	}

	repo, err := s.openRepo(project)
	if err != nil {
		return nil, err
	}
	refs, err := repo.ListRefs(kind)
	if err != nil {
		return nil, err
	}
	if descending {
		for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
			refs[i], refs[j] = refs[j], refs[i]
		}
	}

	result := make([]RepositoryRef, 0, len(refs))
	for _, ref := range refs {
		commit, err := repo.ReadCommit(ref.CommitHash)
		if err != nil {
			return nil, err
		}
		result = append(result, RepositoryRef{Name: ref.Name, Commit: commit})
	}
	return result, nil
}

// GetBranch returns a single branch with its resolved commit
func (s *ProjectService) GetBranch(actingUser *models.User, project *models.Project, branchName string) (*RepositoryRef, error) {
	if err := checkAccess(s.members, actingUser, project, models.GuestAccess); err != nil {
		return nil, err
	}

	repo, err := s.openRepo(project)
	if err != nil {
		return nil, err
	}
	ref, err := repo.GetRef(refstore.RefBranch, branchName)
	if err != nil {
		if errors.Is(err, refstore.ErrRefNotFound) {
			return nil, domain.NotFound("branch")
		}
		return nil, err
	}
	commit, err := repo.ReadCommit(ref.CommitHash)
	if err != nil {
		return nil, err
	}
	return &RepositoryRef{Name: ref.Name, Commit: commit}, nil
}

// GetBlob returns the raw bytes of the file at filePath in the given
// revision. An unknown revision and a missing path are the same NotFound.
func (s *ProjectService) GetBlob(actingUser *models.User, project *models.Project, rev, filePath string) ([]byte, error) {
	if err := checkAccess(s.members, actingUser, project, models.GuestAccess); err != nil {
		return nil, err
	}

	repo, err := s.openRepo(project)
	if err != nil {
		return nil, err
	}
	data, err := repo.BlobAt(rev, filePath)
	if err != nil {
		if errors.Is(err, refstore.ErrRevisionNotFound) ||
			errors.Is(err, refstore.ErrPathNotFound) ||
			errors.Is(err, refstore.ErrObjectNotFound) {
			return nil, domain.NotFound("file")
		}
		return nil, err
	}
	return data, nil
}

func (s *ProjectService) openRepo(project *models.Project) (*refstore.Repo, error) {
	repo, err := s.store.Open(project.Code)
	if err != nil {
		if errors.Is(err, refstore.ErrRepoNotFound) {
			return nil, domain.NotFound("repository")
		}
		return nil, err
	}
	return repo, nil
}

func flag(v *bool, defaultVal bool) bool {
	if v != nil {
		return *v
	}
	return defaultVal
}
